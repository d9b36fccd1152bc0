package models

import (
	"reflect"
	"strings"
	"testing"
)

func TestResultUpdatedAtStaysServiceStamped(t *testing.T) {
	// The merge logic stamps updated_at with its own clock; the ORM must not
	// overwrite that on save, or recency-based conflict decisions drift.
	field, ok := reflect.TypeOf(Result{}).FieldByName("UpdatedAt")
	if !ok {
		t.Fatal("Result has no UpdatedAt field")
	}
	if !strings.Contains(field.Tag.Get("gorm"), "autoUpdateTime:false") {
		t.Fatalf("UpdatedAt must disable auto-update timestamps, tag: %q", field.Tag)
	}
}
