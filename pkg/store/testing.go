package store

import (
	"context"
	"testing"
	"time"
)

// ContractTest defines a behavior suite every backend must pass.
//
// Backend test files construct a store over fake or in-process state and
// hand it to RunContractTests; the suite exercises the semantics the façade
// and HTTP surface rely on.
type ContractTest struct {
	// NewStore returns a fresh, empty store for one subtest.
	NewStore func(t *testing.T) Store

	// SkipValidate skips the Validate check for stores whose test doubles
	// cannot answer a connectivity probe.
	SkipValidate bool

	// SkipDelete skips delete coverage for stores without delete support.
	SkipDelete bool
}

// RunContractTests runs the standard backend contract suite.
func RunContractTests(t *testing.T, contract ContractTest) {
	t.Run("Contract", func(t *testing.T) {
		t.Run("Name", func(t *testing.T) {
			s := contract.NewStore(t)
			if s.Name() == "" {
				t.Error("Name() must return a non-empty identifier")
			}
		})

		t.Run("SetGetRoundTrip", func(t *testing.T) {
			s := contract.NewStore(t)
			ctx := testContext(t)

			if _, err := s.Set(ctx, "contract-round-trip", "v-original"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			got, err := s.Get(ctx, "contract-round-trip")
			if err != nil {
				t.Fatalf("Get after Set failed: %v", err)
			}
			if got.Value != "v-original" {
				t.Errorf("Get returned %q, want %q", got.Value, "v-original")
			}
		})

		t.Run("GetMissingIsNotFound", func(t *testing.T) {
			s := contract.NewStore(t)
			ctx := testContext(t)

			_, err := s.Get(ctx, "contract-never-written")
			if err == nil {
				t.Fatal("Get of a never-written name must fail")
			}
			if !IsNotFound(err) {
				t.Errorf("expected NotFoundError, got %T: %v", err, err)
			}
		})

		t.Run("OverwriteReturnsLatest", func(t *testing.T) {
			s := contract.NewStore(t)
			ctx := testContext(t)

			if _, err := s.Set(ctx, "contract-overwrite", "v1"); err != nil {
				t.Fatalf("first Set failed: %v", err)
			}
			if _, err := s.Set(ctx, "contract-overwrite", "v2"); err != nil {
				t.Fatalf("second Set failed: %v", err)
			}
			got, err := s.Get(ctx, "contract-overwrite")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.Value != "v2" {
				t.Errorf("Get returned %q after overwrite, want %q", got.Value, "v2")
			}
		})

		t.Run("ListContainsWrittenNames", func(t *testing.T) {
			s := contract.NewStore(t)
			ctx := testContext(t)

			for _, name := range []string{"contract-list-a", "contract-list-b"} {
				if _, err := s.Set(ctx, name, "v"); err != nil {
					t.Fatalf("Set %s failed: %v", name, err)
				}
			}
			names, err := s.List(ctx)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			seen := make(map[string]bool, len(names))
			for _, n := range names {
				seen[n] = true
			}
			if !seen["contract-list-a"] || !seen["contract-list-b"] {
				t.Errorf("List %v missing written names", names)
			}
		})

		if !contract.SkipDelete {
			t.Run("DeleteThenGetIsNotFound", func(t *testing.T) {
				s := contract.NewStore(t)
				ctx := testContext(t)

				if _, err := s.Set(ctx, "contract-delete", "v"); err != nil {
					t.Fatalf("Set failed: %v", err)
				}
				if err := s.Delete(ctx, "contract-delete"); err != nil {
					t.Fatalf("Delete failed: %v", err)
				}
				if _, err := s.Get(ctx, "contract-delete"); !IsNotFound(err) {
					t.Errorf("Get after Delete returned %v, want NotFoundError", err)
				}
			})

			t.Run("DeleteMissingIsNotFound", func(t *testing.T) {
				s := contract.NewStore(t)
				ctx := testContext(t)

				if err := s.Delete(ctx, "contract-never-written"); !IsNotFound(err) {
					t.Errorf("Delete of missing name returned %v, want NotFoundError", err)
				}
			})
		}

		if !contract.SkipValidate {
			t.Run("Validate", func(t *testing.T) {
				s := contract.NewStore(t)
				if err := s.Validate(testContext(t)); err != nil {
					t.Errorf("Validate failed against healthy test backend: %v", err)
				}
			})
		}

		t.Run("Capabilities", func(t *testing.T) {
			s := contract.NewStore(t)
			// Just exercise the call; the zero value is a legal answer.
			_ = s.Capabilities()
		})
	})
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
