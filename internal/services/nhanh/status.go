package nhanh

// Remote order statuses as Nhanh.vn reports them.
const (
	StatusNew        = "New"
	StatusConfirming = "Confirming"
	StatusConfirmed  = "Confirmed"
	StatusPacking    = "Packing"
	StatusPacked     = "Packed"
	StatusShipping   = "Shipping"
	StatusSuccess    = "Success"
	StatusFailed     = "Failed"
	StatusCanceled   = "Canceled"
	StatusAborted    = "Aborted"
	StatusReturned   = "Returned"
)

// Remote product statuses.
const (
	ProductActive   = "Active"
	ProductInactive = "Inactive"
)

// Local order statuses.
const (
	LocalPending    = "pending"
	LocalProcessing = "processing"
	LocalOnHold     = "on-hold"
	LocalCompleted  = "completed"
	LocalFailed     = "failed"
	LocalCancelled  = "cancelled"
	LocalRefunded   = "refunded"
)

var remoteToLocal = map[string]string{
	StatusNew:        LocalPending,
	StatusConfirming: LocalProcessing,
	StatusConfirmed:  LocalProcessing,
	StatusPacking:    LocalProcessing,
	StatusPacked:     LocalProcessing,
	StatusShipping:   LocalOnHold,
	StatusSuccess:    LocalCompleted,
	StatusFailed:     LocalFailed,
	StatusCanceled:   LocalCancelled,
	StatusAborted:    LocalCancelled,
	StatusReturned:   LocalRefunded,
}

var localToRemote = map[string]string{
	LocalPending:    StatusNew,
	LocalProcessing: StatusConfirming,
	LocalOnHold:     StatusConfirming,
	LocalCompleted:  StatusSuccess,
	LocalCancelled:  StatusCanceled,
	LocalRefunded:   StatusReturned,
	LocalFailed:     StatusFailed,
}

// StatusToLocal maps a remote order status to the local vocabulary. Unknown
// remote values map to pending; an unknown status must never fail the
// pipeline.
func StatusToLocal(remote string) string {
	if local, ok := remoteToLocal[remote]; ok {
		return local
	}
	return LocalPending
}

// StatusFromLocal maps a local order status to the remote vocabulary. The
// false return means "no mapping": the caller must skip the remote status
// update for that transition rather than treat it as an error.
func StatusFromLocal(local string) (string, bool) {
	remote, ok := localToRemote[local]
	return remote, ok
}
