package postgresql

import (
	"fmt"
	"runtime"

	"github.com/rossostudios/maidconnect-sub005/res/store"

	sqlCommenter "github.com/gouyelliot/gorm-sqlcommenter-plugin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type storeImpl struct {
	db *gorm.DB

	userStore        *userStore
	addressStore     *addressStore
	serviceStore     *serviceStore
	bookingStore     *bookingStore
	transactionStore *transactionStore
}

func (sImpl *storeImpl) Users() store.UserStore {
	return sImpl.userStore
}

func (sImpl *storeImpl) Addresses() store.AddressStore {
	return sImpl.addressStore
}

func (sImpl *storeImpl) Services() store.ServiceStore {
	return sImpl.serviceStore
}

func (sImpl *storeImpl) Bookings() store.BookingStore {
	return sImpl.bookingStore
}

func (sImpl *storeImpl) Transactions() store.TransactionStore {
	return sImpl.transactionStore
}

func Connect(connectionUrl string) (*storeImpl, error) {
	db, err := gorm.Open(postgres.Open(connectionUrl), &gorm.Config{TranslateError: true, PrepareStmt: false})
	if err != nil {
		return nil, err
	}

	err = db.Use(sqlCommenter.New())
	if err != nil {
		return nil, err
	}

	err = decorateDBOperationsWithAdditionalInfo(db)
	if err != nil {
		return nil, err
	}

	s := &storeImpl{db: db}

	s.userStore = NewUserStore(s)
	s.addressStore = NewAddressStore(s)
	s.serviceStore = NewServiceStore(s)
	s.bookingStore = NewBookingStore(s)
	s.transactionStore = NewTransactionStore(s)

	return s, nil
}

// COMMON UTILITIES

func identifyCallee(stackDepth int) string {
	function, _, line, ok := runtime.Caller(stackDepth)
	if !ok {
		return "<missing-runtime-info>"
	}
	return fmt.Sprintf("%s:%d", runtime.FuncForPC(function).Name(), line)
}

func annotateWithInfoHook(db *gorm.DB) {
	info := identifyCallee(4) // Skip the internal gorm calls & the 2 local setup calls
	db.Clauses(sqlCommenter.NewTag("action", info))
}

func decorateDBOperationsWithAdditionalInfo(db *gorm.DB) error {
	return db.Callback().Query().Before("gorm:query").Register("store::annotate_with_info", annotateWithInfoHook)
}
