package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"udaan_go/models"
	"udaan_go/storage"
)

type memObjects struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemObjects() *memObjects { return &memObjects{data: map[string][]byte{}} }

func (m *memObjects) Put(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *memObjects) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return d, nil
}

func (m *memObjects) List(ctx context.Context, prefix string) ([]storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.Object
	for k, d := range m.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.Object{Key: k, Size: int64(len(d))})
		}
	}
	return out, nil
}

func TestBackupDisabledWithoutObjectStore(t *testing.T) {
	env := newTestEnv(t)
	b := NewBackupService(env.store, nil, env.settings, "backups")
	if b.Enabled() {
		t.Fatal("backups should be disabled")
	}
	if _, err := b.Backup(context.Background()); !errors.Is(err, ErrBackupsDisabled) {
		t.Fatalf("Backup err = %v", err)
	}
	if _, err := b.List(context.Background()); !errors.Is(err, ErrBackupsDisabled) {
		t.Fatalf("List err = %v", err)
	}
}

func TestBackupAndRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	objects := newMemObjects()

	src := newTestEnv(t)
	a := src.addStudent(t, "Aarav Sharma")
	src.addStudent(t, "Diya Patel")
	src.pay(t, a.ID, models.SemesterOne, 3000)

	backups := NewBackupService(src.store, objects, src.settings, "/backups/")
	backups.now = func() time.Time { return time.Date(2023, 7, 9, 14, 30, 5, 0, time.UTC) }
	info, err := backups.Backup(ctx)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if info.Key != "backups/2023/07/school_backup_20230709_143005.zip" {
		t.Fatalf("key = %s", info.Key)
	}
	if info.Collections["students"] != 2 || info.Collections["fees"] != 1 {
		t.Fatalf("collections = %v", info.Collections)
	}

	listed, err := backups.List(ctx)
	if err != nil || len(listed) != 1 {
		t.Fatalf("List = %v, %v", listed, err)
	}

	dst := newTestEnv(t)
	restored, err := NewBackupService(dst.store, objects, dst.settings, "backups").Restore(ctx, info.Key)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Collections["students"] != 2 || !restored.CreatedAt.Equal(info.CreatedAt) {
		t.Fatalf("unexpected restore info %+v", restored)
	}

	students, _ := dst.students.List(ctx, StudentFilter{})
	if len(students) != 2 {
		t.Fatalf("restored %d students want 2", len(students))
	}
	l, err := dst.fees.GetRecord(ctx, a.ID, "")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if len(l.Record.Transactions) != 1 {
		t.Fatalf("restored record has %d transactions", len(l.Record.Transactions))
	}
}

func TestRestoreArchiveRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)
	b := NewBackupService(env.store, newMemObjects(), env.settings, "backups")
	if _, err := b.RestoreArchive(context.Background(), []byte("not a zip")); err == nil {
		t.Fatal("expected error for a non-zip archive")
	}
}
