package marshal

import (
	"database/sql"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"github.com/roach88/relmap/internal/queryir"
	"github.com/roach88/relmap/internal/schema"
)

type Country struct {
	_    schema.Table `orm:"name=Country"`
	ID   int64
	Name string
}

type Geo struct {
	Lat float64
	Lng float64
}

type Address struct {
	Street string
	City   string
	Geo    *Geo `orm:"inline"`
}

type Customer struct {
	_ schema.Table `orm:"name=Customer"`

	ID       int64
	Name     string `orm:"length=12"`
	Nick     string `orm:"length=12;trim"`
	Country  *Country
	Address  Address
	Parent   schema.Ref[Customer]
	Born     time.Time
	Seen     *time.Time
	Active   bool
	Key      uuid.UUID
	Balance  apd.Decimal
	Note     sql.NullString
	Orders   int64  `orm:"subquery"`
	Computed string `orm:"readonly"`
}

func (Customer) Subqueries() map[string]schema.SubqueryBuilder {
	return map[string]schema.SubqueryBuilder{
		"Orders": schema.SubqueryFunc(func(schema.SubqueryContext) (queryir.Expr, error) {
			return queryir.Literal{Value: int64(0)}, nil
		}),
	}
}

type Employee struct {
	ID      int64
	Manager schema.Ref[Employee]
	Mentor  *Employee
}

type Colleague struct {
	ID      int64
	Manager schema.Ref[Colleague]
}

type Level uint8

type Widths struct {
	ID    int64
	Small int8
	Level Level
	Ratio float32
	Tag   *string
	Blob  []byte
}

// customerRow is a full row for Customer in materializer order.
func customerRow() SliceCursor {
	return SliceCursor{
		int64(1),                               // ID
		"Ada",                                  // Name
		"ada",                                  // Nick
		"1 Main St",                            // Address.Street
		"Oslo",                                 // Address.City
		59.9,                                   // Address.Geo.Lat
		10.7,                                   // Address.Geo.Lng
		int64(7),                               // Parent
		"2024-03-01 10:00:00",                  // Born
		nil,                                    // Seen
		int64(1),                               // Active
		"6ba7b810-9dad-11d1-80b4-00c04fd430c8", // Key
		"12.50",                                // Balance
		"hi",                                   // Note
		"calc",                                 // Computed
		int64(3),                               // Country.ID
		"Norway",                               // Country.Name
		int64(4),                               // Orders
	}
}
