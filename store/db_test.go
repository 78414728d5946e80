package store_test

import (
	"testing"

	"github.com/airpnp/airpnp/store"
)

func openDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.InitDB(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestIgnoreListRoundTrip(t *testing.T) {
	db := openDB(t)

	ok, err := db.IsIgnored("uuid:printer")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("empty db should ignore nothing")
	}

	if err := db.AddIgnored("uuid:printer", "Print1", "urn:schemas-upnp-org:device:Printer:1"); err != nil {
		t.Fatal(err)
	}

	ok, err = db.IsIgnored("uuid:printer")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("added device not ignored")
	}
}

func TestAddIgnoredTwice(t *testing.T) {
	db := openDB(t)

	if err := db.AddIgnored("uuid:printer", "Print1", "t1"); err != nil {
		t.Fatal(err)
	}
	// second insert updates rather than fails
	if err := db.AddIgnored("uuid:printer", "Print1 renamed", "t2"); err != nil {
		t.Fatal(err)
	}

	entries, err := db.ListIgnored()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].FriendlyName != "Print1 renamed" {
		t.Fatalf("entry not updated: %v", entries[0])
	}
}

func TestRemoveIgnored(t *testing.T) {
	db := openDB(t)

	if err := db.AddIgnored("uuid:printer", "Print1", "t"); err != nil {
		t.Fatal(err)
	}
	if err := db.RemoveIgnored("uuid:printer"); err != nil {
		t.Fatal(err)
	}
	ok, err := db.IsIgnored("uuid:printer")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("removed device still ignored")
	}
}
