package store

type Store interface {
	Users() UserStore
	Addresses() AddressStore
	Services() ServiceStore
	Bookings() BookingStore
	Transactions() TransactionStore
}
