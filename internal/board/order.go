package board

// OrderKind is the category of an order token.
type OrderKind string

const (
	OrderMarch            OrderKind = "march"
	OrderSupport          OrderKind = "support"
	OrderDefense          OrderKind = "defense"
	OrderConsolidatePower OrderKind = "consolidate-power"
)

// Order is one token from a house's fixed token set. Orders are shared,
// immutable content; a "placed order" is a (region, order id) pair held
// by the planning or action state, never by the region itself.
type Order struct {
	ID    int
	Kind  OrderKind
	Bonus int
}

var orderTable = []*Order{
	{ID: 1, Kind: OrderMarch, Bonus: -1},
	{ID: 2, Kind: OrderMarch, Bonus: 0},
	{ID: 3, Kind: OrderMarch, Bonus: 1},
	{ID: 4, Kind: OrderSupport, Bonus: 1},
	{ID: 5, Kind: OrderSupport, Bonus: 2},
	{ID: 6, Kind: OrderDefense, Bonus: 1},
	{ID: 7, Kind: OrderDefense, Bonus: 2},
	{ID: 8, Kind: OrderConsolidatePower, Bonus: 0},
}

// Orders maps order ids to their shared definitions. Each house may place
// each order id at most once per planning phase.
var Orders = func() map[int]*Order {
	m := make(map[int]*Order, len(orderTable))
	for _, o := range orderTable {
		m[o.ID] = o
	}
	return m
}()

// OrderByID returns the order with the given id, or nil.
func OrderByID(id int) *Order {
	return Orders[id]
}
