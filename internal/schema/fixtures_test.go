package schema

import (
	"database/sql"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
)

type Status int

type Country struct {
	_    Table `orm:"prefix=co"`
	ID   int16
	Name string `orm:"length=60;notnull"`
}

type Geo struct {
	Lat float64
	Lng float64
}

type Address struct {
	Street string `orm:"length=80"`
	City   string
	Geo    Geo
}

type Customer struct {
	_ Table   `orm:"schema=sales"`
	_ IndexOn `orm:"fields=Name;unique"`
	_ IndexOn `orm:"fields=Address.City;include=Active"`

	ID        int64
	Name      string       `orm:"length=12"`
	Nick      string       `orm:"length=12;trim"`
	Active    bool         `orm:"default=true"`
	Status    Status
	Level     uint8
	Balance   apd.Decimal  `orm:"precision=18,2"`
	Key       uuid.UUID
	Photo     []byte
	Born      time.Time
	Seen      *time.Time
	Note      sql.NullString
	Address   Address      `orm:"inline=Addr"`
	Country   *Country     `orm:"fk=setnull"`
	Parent    Ref[Customer] `orm:"fk=none"`
	Version   int32        `orm:"rowversion"`
	Computed  string       `orm:"readonly;name=Calc"`
	Transient string       `orm:"-"`
	secret    string
}

type Node struct {
	ID   int64
	Next *Node `orm:"inline"`
}

type Point struct {
	X, Y int
}

type Pair struct {
	ID int64
	A  Point
	B  Point
}

type Audit struct {
	_       Table `orm:"prefix=bb;schema=core"`
	ID      int64
	Name    string `orm:"length=10"`
	Created time.Time
}

type Derived struct {
	Audit
	_     Table `orm:"name=Derivs"`
	Extra string
	Name  string `orm:"length=20"`
}

type NoKey struct {
	Name string
}

type TwoKeys struct {
	A int64 `orm:"pk"`
	B int64 `orm:"pk"`
}

type TaggedKey struct {
	ID   int64
	Code string `orm:"pk;length=8"`
}

type BothInlineEager struct {
	ID      int64
	Country *Country `orm:"inline;eager"`
}

type BadIndex struct {
	_  IndexOn `orm:"fields=Missing"`
	ID int64
}

type RedeclaredIndex struct {
	_    IndexOn `orm:"fields=Name"`
	_    IndexOn `orm:"fields=Name;include=Code"`
	ID   int64
	Name string
	Code string
}

type UnknownTag struct {
	ID   int64
	Name string `orm:"lenght=4"`
}

type Unsupported struct {
	ID  int64
	Ch  chan int
}

type NullableVersion struct {
	ID      int64
	Version *int64 `orm:"rowversion"`
}

type KeyedPart struct {
	Serial string `orm:"pk"`
	Label  string
}

type VersionedPart struct {
	Label string
	Rev   int64 `orm:"rowversion"`
}

type InlineKey struct {
	ID   int64
	Part KeyedPart `orm:"inline"`
}

type InlineVersion struct {
	ID   int64
	Part VersionedPart `orm:"inline"`
}

type Employee struct {
	ID      int64
	Manager Ref[Employee]
	Mentor  *Employee `orm:"fk=cascade"`
}

type OrderLine struct {
	ID     int64
	Order  *Order
	Amount int64
}

type Order struct {
	ID         int64
	Total      int64
	LineCount  int64 `orm:"subquery"`
	LineAmount int64 `orm:"subquery"`
}

func (Order) Subqueries() map[string]SubqueryBuilder {
	return map[string]SubqueryBuilder{
		"LineCount":  Aggregate{Func: "count", Of: typeOf[OrderLine](), Match: "Order"},
		"LineAmount": Aggregate{Func: "sum", Of: typeOf[OrderLine](), Column: "Amount", Match: "Order"},
	}
}

type MissingSubquery struct {
	ID    int64
	Count int64 `orm:"subquery"`
}

type Page[T any] struct {
	ID   int64
	Item T
}

type VAT struct {
	_  Table `orm:"name=TableVAT;manualkey"`
	ID string `orm:"length=4"`
}
