package upload

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/streamhive/upload-service/pkg/enums"
)

// statusStores returns a fresh instance of every StatusStore implementation
// so the contract below is verified against each backend.
func statusStores() map[string]func() StatusStore {
	return map[string]func() StatusStore{
		"memory": func() StatusStore { return NewMemoryStore() },
		"redis":  func() StatusStore { return newFakeBackedRedisStore() },
	}
}

func TestStatusStoreCreateRejectsDuplicates(t *testing.T) {
	t.Parallel()

	for name, newStore := range statusStores() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := newStore()
			ctx := context.Background()

			record := &Record{UploadID: "u1", UserID: "user-a", Status: enums.UploadStatusUploading}
			if err := store.Create(ctx, record); err != nil {
				t.Fatalf("Create: %v", err)
			}
			if err := store.Create(ctx, record); err == nil {
				t.Fatal("expected duplicate create to fail")
			}
			if err := store.Create(ctx, &Record{}); err == nil {
				t.Fatal("expected create without upload id to fail")
			}
		})
	}
}

func TestStatusStoreMergeUnknownIDIsNoop(t *testing.T) {
	t.Parallel()

	for name, newStore := range statusStores() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := newStore()
			if err := store.Merge(context.Background(), "missing", Patch{Progress: ptr(50)}); err != nil {
				t.Fatalf("merge on unknown id must no-op, got %v", err)
			}
		})
	}
}

func TestStatusStoreMergePreservesEarlierFields(t *testing.T) {
	t.Parallel()

	for name, newStore := range statusStores() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := newStore()
			ctx := context.Background()

			if err := store.Create(ctx, &Record{UploadID: "u1", UserID: "user-a", Status: enums.UploadStatusUploading}); err != nil {
				t.Fatalf("Create: %v", err)
			}
			if err := store.Merge(ctx, "u1", Patch{
				Status:       ptr(enums.UploadStatusUploaded),
				Progress:     ptr(50),
				RawVideoPath: ptr("raw/user-a/u1.mp4"),
				BlobURL:      ptr("https://example.test/u1"),
			}); err != nil {
				t.Fatalf("Merge: %v", err)
			}
			if err := store.Merge(ctx, "u1", Patch{
				Status: ptr(enums.UploadStatusFailed),
				Error:  ptr("broker unavailable"),
			}); err != nil {
				t.Fatalf("Merge: %v", err)
			}

			record, err := store.Get(ctx, "u1", "user-a")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if record.Status != enums.UploadStatusFailed || record.Error != "broker unavailable" {
				t.Fatalf("unexpected record %+v", record)
			}
			if record.RawVideoPath != "raw/user-a/u1.mp4" || record.BlobURL == "" {
				t.Fatal("merge must not drop fields recorded by earlier stages")
			}
			if record.Progress != 50 {
				t.Fatalf("progress = %d, want 50", record.Progress)
			}
		})
	}
}

func TestStatusStoreGetEnforcesOwnership(t *testing.T) {
	t.Parallel()

	for name, newStore := range statusStores() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := newStore()
			ctx := context.Background()

			if err := store.Create(ctx, &Record{UploadID: "u1", UserID: "user-b"}); err != nil {
				t.Fatalf("Create: %v", err)
			}

			if _, err := store.Get(ctx, "u1", "user-a"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("foreign owner must look like not-found, got %v", err)
			}
			if _, err := store.Get(ctx, "unknown", "user-a"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("unknown id must be not-found, got %v", err)
			}
			if _, err := store.Get(ctx, "u1", "user-b"); err != nil {
				t.Fatalf("owner lookup failed: %v", err)
			}
		})
	}
}

func TestStatusStoreGetReturnsCopy(t *testing.T) {
	t.Parallel()

	for name, newStore := range statusStores() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := newStore()
			ctx := context.Background()

			if err := store.Create(ctx, &Record{UploadID: "u1", UserID: "user-a", Progress: 0}); err != nil {
				t.Fatalf("Create: %v", err)
			}

			record, err := store.Get(ctx, "u1", "user-a")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			record.Progress = 99

			again, err := store.Get(ctx, "u1", "user-a")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if again.Progress != 0 {
				t.Fatal("mutating a returned record must not affect the store")
			}
		})
	}
}

func TestStatusStoreListByUserNewestFirst(t *testing.T) {
	t.Parallel()

	for name, newStore := range statusStores() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := newStore()
			ctx := context.Background()
			base := time.Now()

			for i, id := range []string{"old", "mid", "new"} {
				record := &Record{
					UploadID:  id,
					UserID:    "user-a",
					CreatedAt: base.Add(time.Duration(i) * time.Minute),
				}
				if err := store.Create(ctx, record); err != nil {
					t.Fatalf("Create(%s): %v", id, err)
				}
			}
			if err := store.Create(ctx, &Record{UploadID: "other", UserID: "user-b", CreatedAt: base}); err != nil {
				t.Fatalf("Create(other): %v", err)
			}

			records, err := store.ListByUser(ctx, "user-a")
			if err != nil {
				t.Fatalf("ListByUser: %v", err)
			}
			if len(records) != 3 {
				t.Fatalf("expected 3 records, got %d", len(records))
			}
			for i, want := range []string{"new", "mid", "old"} {
				if records[i].UploadID != want {
					t.Fatalf("order[%d] = %s, want %s", i, records[i].UploadID, want)
				}
			}
		})
	}
}

func TestStatusStoreConcurrentMerges(t *testing.T) {
	t.Parallel()

	for name, newStore := range statusStores() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := newStore()
			ctx := context.Background()

			ids := []string{"a", "b", "c", "d"}
			for _, id := range ids {
				if err := store.Create(ctx, &Record{UploadID: id, UserID: "user-" + id}); err != nil {
					t.Fatalf("Create(%s): %v", id, err)
				}
			}

			var wg sync.WaitGroup
			for _, id := range ids {
				for i := 0; i < 50; i++ {
					wg.Add(1)
					go func(id string, progress int) {
						defer wg.Done()
						_ = store.Merge(ctx, id, Patch{Progress: ptr(progress)})
						_, _ = store.Get(ctx, id, "user-"+id)
					}(id, i)
				}
			}
			wg.Wait()

			for _, id := range ids {
				record, err := store.Get(ctx, id, "user-"+id)
				if err != nil {
					t.Fatalf("Get(%s): %v", id, err)
				}
				if record.UserID != "user-"+id {
					t.Fatalf("cross-contaminated owner for %s: %s", id, record.UserID)
				}
			}
		})
	}
}
