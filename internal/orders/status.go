package orders

type Status string

const (
	StatusPending    Status = "pending"
	StatusPaid       Status = "paid"
	StatusPreparing  Status = "preparing"
	StatusDelivering Status = "delivering"
	StatusDelivered  Status = "delivered"
	StatusReceived   Status = "received"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusPaid: true, StatusCancelled: true},
	StatusPaid:       {StatusPreparing: true, StatusCancelled: true},
	StatusPreparing:  {StatusDelivering: true, StatusCancelled: true},
	StatusDelivering: {StatusDelivered: true},
	StatusDelivered:  {StatusReceived: true},
	StatusReceived:   {},
	StatusCancelled:  {StatusRefunded: true}, // refunded only if the order was paid
	StatusRefunded:   {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// CanCancel reports whether an order in this status may still be cancelled.
func CanCancel(s Status) bool {
	return CanTransition(s, StatusCancelled)
}

type Role string

const (
	RoleBuyer   Role = "buyer"
	RoleArtisan Role = "artisan"
)

// artisanNext is the fulfilment path sellers may drive; everything else
// (cancel, delivery/receipt confirmation) belongs to the buyer.
var artisanNext = map[Status]Status{
	StatusPaid:      StatusPreparing,
	StatusPreparing: StatusDelivering,
}

// RoleAllows reports whether the acting role may request this transition.
// The lifecycle table is checked separately; this is authorization only.
func RoleAllows(role Role, from, to Status) bool {
	switch role {
	case RoleArtisan:
		return artisanNext[from] == to
	case RoleBuyer:
		switch to {
		case StatusCancelled, StatusDelivered, StatusReceived:
			return true
		}
	}
	return false
}
