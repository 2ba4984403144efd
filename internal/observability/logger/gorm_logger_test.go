package logger

import (
	"context"
	"testing"

	"gorm.io/gorm"
)

func TestOperationFromSQL(t *testing.T) {
	cases := map[string]string{
		"SELECT * FROM menus":                          "SELECT",
		"  update menus set state = 'paid'":            "UPDATE",
		"INSERT INTO delivery_jobs (id) VALUES (1)":    "INSERT",
		"WITH due AS (SELECT id FROM x) DELETE FROM y": "UNKNOWN",
		"": "UNKNOWN",
	}
	for sql, want := range cases {
		if got := operationFromSQL(sql); got != want {
			t.Fatalf("operationFromSQL(%q) = %s, want %s", sql, got, want)
		}
	}
}

func TestGormLoggerDropsBoundParams(t *testing.T) {
	var filter gorm.ParamsFilter = NewGormLogger(DefaultGormLoggerConfig())
	sql, params := filter.ParamsFilter(context.Background(), "SELECT * FROM menus WHERE customer_email = ?", "owner@harbordiner.test")
	if sql != "SELECT * FROM menus WHERE customer_email = ?" {
		t.Fatalf("sql = %q", sql)
	}
	if len(params) != 0 {
		t.Fatalf("params = %v, want none", params)
	}
}
