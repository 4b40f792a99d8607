package nhanh

import "strconv"

// ProductRecord is a product as Nhanh.vn reports it.
type ProductRecord struct {
	ID               int64    `json:"id"`
	Name             string   `json:"name"`
	Code             string   `json:"code"`
	Price            float64  `json:"price"`
	SalePrice        float64  `json:"salePrice"`
	Description      string   `json:"description"`
	ShortDescription string   `json:"shortDescription"`
	Quantity         int      `json:"quantity"`
	ShippingWeight   float64  `json:"shippingWeight"`
	Status           string   `json:"status"`
	Images           []string `json:"images"`
	CategoryName     string   `json:"categoryName"`
}

// RemoteID renders the numeric remote id the way links store it.
func (r *ProductRecord) RemoteID() string {
	return strconv.FormatInt(r.ID, 10)
}

type ProductPage struct {
	Products     []ProductRecord `json:"products"`
	TotalPages   int             `json:"totalPages"`
	TotalRecords int             `json:"totalRecords"`
}

// InventoryRecord is one stock-quantity row from /api/product/inventory.
type InventoryRecord struct {
	ProductID   int64 `json:"productId"`
	Quantity    int   `json:"quantity"`
	WarehouseID int64 `json:"warehouseId"`
}

func (r *InventoryRecord) RemoteProductID() string {
	return strconv.FormatInt(r.ProductID, 10)
}

type InventoryPage struct {
	Items        []InventoryRecord `json:"items"`
	TotalPages   int               `json:"totalPages"`
	TotalRecords int               `json:"totalRecords"`
}

// OrderPush is the outbound order representation. It is built fresh on every
// push and never persisted.
type OrderPush struct {
	Code            string      `json:"code"`
	Type            string      `json:"type"`
	CustomerShipFee float64     `json:"customerShipFee"`
	CustomerNote    string      `json:"customerNote"`
	Customer        Customer    `json:"customer"`
	Products        []OrderLine `json:"products"`
}

type Customer struct {
	Name         string `json:"name"`
	Mobile       string `json:"mobile"`
	Email        string `json:"email"`
	Address      string `json:"address"`
	CityName     string `json:"cityName"`
	DistrictName string `json:"districtName"`
}

type OrderLine struct {
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// OrderDetail is the inbound view of a remote order.
type OrderDetail struct {
	ID           int64         `json:"id"`
	Status       string        `json:"status"`
	ShipmentInfo *ShipmentInfo `json:"shipmentInfo"`
}

type ShipmentInfo struct {
	TrackingNumber string `json:"trackingNumber"`
	Carrier        string `json:"carrier"`
}

// ShippingFeeRequest asks Nhanh.vn to quote a delivery fee.
type ShippingFeeRequest struct {
	FromCityName     string  `json:"fromCityName"`
	FromDistrictName string  `json:"fromDistrictName"`
	ToCityName       string  `json:"toCityName"`
	ToDistrictName   string  `json:"toDistrictName"`
	Weight           float64 `json:"weight"`
	ShippingMethod   string  `json:"defaultShippingMethod"`
}

// AuthResult is the outcome of exchanging an authorization code.
type AuthResult struct {
	AccessToken string `json:"accessToken"`
	BusinessID  string `json:"businessId"`
	ExpiredAt   string `json:"expiredDateTime"`
	Permissions []string `json:"permissions"`
	DepotIDs    []int64  `json:"depotIds"`
}
