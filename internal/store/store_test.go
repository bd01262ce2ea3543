package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"embyscout/internal/config"
	"embyscout/internal/services"
	"embyscout/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "embyscout.db"))
	if err != nil {
		t.Fatalf("OpenSQLite returned error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetMissingKey(t *testing.T) {
	s := openTestStore(t)
	value, ok, err := s.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if ok || value != nil {
		t.Fatalf("expected missing key, got %q ok=%v", value, ok)
	}
}

func TestPutOverwritesAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.Put(ctx, "EMBY_PANEL_POS_v1", []byte(`{"top":1}`)); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if err := s.Put(ctx, "EMBY_PANEL_POS_v1", []byte(`{"top":2}`)); err != nil {
		t.Fatalf("second Put returned error: %v", err)
	}
	value, ok, err := s.Get(ctx, "EMBY_PANEL_POS_v1")
	if err != nil || !ok {
		t.Fatalf("Get returned ok=%v err=%v", ok, err)
	}
	if string(value) != `{"top":2}` {
		t.Fatalf("expected overwritten value, got %q", value)
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys returned error: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"EMBY_PANEL_POS_v1"}) {
		t.Fatalf("unexpected keys: %v", keys)
	}

	if err := s.Delete(ctx, "EMBY_PANEL_POS_v1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "EMBY_PANEL_POS_v1"); ok {
		t.Fatal("expected key removed")
	}
	if err := s.Delete(ctx, "EMBY_PANEL_POS_v1"); err != nil {
		t.Fatalf("deleting absent key returned error: %v", err)
	}
}

func TestPutRejectsEmptyKey(t *testing.T) {
	s := openTestStore(t)
	err := s.Put(context.Background(), " ", []byte("x"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestJSONRoundTripAndUntouchedDestination(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	type record struct {
		Name  string   `json:"name"`
		Paths []string `json:"paths"`
	}
	want := []record{{Name: "Home", Paths: []string{"/a", "/b"}}, {Name: "Remote"}}
	if err := s.PutJSON(ctx, "list", want); err != nil {
		t.Fatalf("PutJSON returned error: %v", err)
	}
	var got []record
	ok, err := s.GetJSON(ctx, "list", &got)
	if err != nil || !ok {
		t.Fatalf("GetJSON returned ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected records: %+v", got)
	}

	sentinel := []record{{Name: "keep"}}
	ok, err = s.GetJSON(ctx, "absent", &sentinel)
	if err != nil || ok {
		t.Fatalf("expected absent key, ok=%v err=%v", ok, err)
	}
	if sentinel[0].Name != "keep" {
		t.Fatalf("destination modified: %+v", sentinel)
	}
}

func TestGetJSONReportsCorruptRecord(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	if err := s.Put(ctx, "bad", []byte("{not json")); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	var dst map[string]any
	if _, err := s.GetJSON(ctx, "bad", &dst); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestReopenKeepsDataAndSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "embyscout.db")
	s, err := store.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite returned error: %v", err)
	}
	if err := s.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	_ = s.Close()

	reopened, err := store.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer reopened.Close()
	value, ok, err := reopened.Get(ctx, "k")
	if err != nil || !ok || string(value) != "v" {
		t.Fatalf("unexpected value after reopen: %q ok=%v err=%v", value, ok, err)
	}
}

func TestOpenFromConfigUsesSQLiteDefault(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = filepath.Join(cfg.Paths.DataDir, "logs")
	cfg.Store.DSN = filepath.Join(cfg.Paths.DataDir, "embyscout.db")

	s, err := store.Open(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer s.Close()
	if s.Driver() != store.DriverSQLite {
		t.Fatalf("unexpected driver: %s", s.Driver())
	}
	if _, err := os.Stat(cfg.Store.DSN); err != nil {
		t.Fatalf("expected database file: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = "mysql"
	if _, err := store.Open(context.Background(), &cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestPostgresBackend(t *testing.T) {
	dsn := os.Getenv("EMBYSCOUT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("EMBYSCOUT_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := store.OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenPostgres returned error: %v", err)
	}
	defer s.Close()
	key := "embyscout_test_" + t.Name()
	defer s.Delete(ctx, key)
	if err := s.PutJSON(ctx, key, map[string]int{"top": 5}); err != nil {
		t.Fatalf("PutJSON returned error: %v", err)
	}
	var got map[string]int
	if ok, err := s.GetJSON(ctx, key, &got); err != nil || !ok || got["top"] != 5 {
		t.Fatalf("unexpected value %v ok=%v err=%v", got, ok, err)
	}
}
