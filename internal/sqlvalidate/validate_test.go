package sqlvalidate

import (
	"reflect"
	"testing"

	"github.com/datachat/datachat/internal/store"
)

func olistSchema(tables ...string) store.Schema {
	var schema store.Schema
	for _, name := range tables {
		schema.Tables = append(schema.Tables, store.Table{Name: name, Columns: []string{"id"}})
	}
	return schema
}

func TestValidateAcceptsKnownTables(t *testing.T) {
	schema := olistSchema("customers", "orders", "order_items")
	cases := []string{
		"SELECT COUNT(*) FROM customers;",
		"SELECT o.order_id FROM orders o JOIN order_items i ON o.order_id = i.order_id;",
		"select customer_state from customers group by 1;",
		"SELECT 1;",
	}
	for _, sqlText := range cases {
		if v := Validate(sqlText, schema); !v.OK {
			t.Fatalf("Validate(%q) rejected, missing = %v", sqlText, v.Missing)
		}
	}
}

func TestValidateRejectsUnknownTables(t *testing.T) {
	schema := olistSchema("customers")

	v := Validate("SELECT * FROM reviews_summary;", schema)
	if v.OK {
		t.Fatal("Validate() accepted unknown table")
	}
	if !reflect.DeepEqual(v.Missing, []string{"reviews_summary"}) {
		t.Fatalf("Missing = %v", v.Missing)
	}
	if !reflect.DeepEqual(v.Available, []string{"customers"}) {
		t.Fatalf("Available = %v", v.Available)
	}
}

func TestValidateCollectsFromAndJoinReferences(t *testing.T) {
	schema := olistSchema("orders")

	v := Validate("SELECT * FROM orders o JOIN payments p ON o.id = p.order_id JOIN sellers s ON s.id = p.seller_id;", schema)
	if v.OK {
		t.Fatal("Validate() accepted unknown joins")
	}
	if !reflect.DeepEqual(v.Missing, []string{"payments", "sellers"}) {
		t.Fatalf("Missing = %v", v.Missing)
	}
}

func TestValidateIsCaseInsensitiveOnKeywords(t *testing.T) {
	schema := olistSchema("customers")
	if v := Validate("select * from customers join customers c2 on 1=1;", schema); !v.OK {
		t.Fatalf("Validate() rejected, missing = %v", v.Missing)
	}
}

func TestValidateDeduplicatesReferences(t *testing.T) {
	v := Validate("SELECT * FROM ghost g JOIN ghost h ON 1=1;", olistSchema("customers"))
	if !reflect.DeepEqual(v.Missing, []string{"ghost"}) {
		t.Fatalf("Missing = %v", v.Missing)
	}
}
