package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"udaan_go/database"
	"udaan_go/storage"
)

const backupFormatVersion = "1.0"

// ErrBackupsDisabled is returned when no object store is configured.
var ErrBackupsDisabled = errors.New("backups are not configured (S3_BUCKET_NAME, AWS_REGION)")

// ObjectStore keeps whole backup archives.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]storage.Object, error)
}

// BackupInfo describes one archive.
type BackupInfo struct {
	Key         string         `json:"key"`
	Size        int            `json:"size"`
	Collections map[string]int `json:"collections"`
	CreatedAt   time.Time      `json:"createdAt"`
}

type backupMetadata struct {
	FormatVersion string         `json:"formatVersion"`
	SchoolName    string         `json:"schoolName"`
	CreatedAt     time.Time      `json:"createdAt"`
	Collections   map[string]int `json:"collections"`
	Description   string         `json:"description"`
}

// BackupService snapshots every collection into a zip of JSON files.
type BackupService struct {
	store    database.Store
	objects  ObjectStore
	settings *SettingsService
	prefix   string
	now      func() time.Time
}

// NewBackupService returns a service; objects may be nil when S3 is not configured.
func NewBackupService(store database.Store, objects ObjectStore, settings *SettingsService, prefix string) *BackupService {
	return &BackupService{
		store:    store,
		objects:  objects,
		settings: settings,
		prefix:   strings.Trim(prefix, "/"),
		now:      time.Now,
	}
}

func (s *BackupService) Enabled() bool { return s.objects != nil }

// Backup uploads a snapshot under {prefix}/{YYYY}/{MM}/school_backup_{timestamp}.zip.
func (s *BackupService) Backup(ctx context.Context) (BackupInfo, error) {
	if !s.Enabled() {
		return BackupInfo{}, ErrBackupsDisabled
	}
	data, info, err := s.Snapshot(ctx)
	if err != nil {
		return BackupInfo{}, err
	}
	at := info.CreatedAt
	info.Key = path.Join(s.prefix,
		fmt.Sprintf("%d", at.Year()),
		fmt.Sprintf("%02d", at.Month()),
		fmt.Sprintf("school_backup_%s.zip", at.Format("20060102_150405")))

	if err := s.objects.Put(ctx, info.Key, data, "application/zip"); err != nil {
		return BackupInfo{}, errors.Wrap(err, "uploading backup")
	}
	logrus.WithFields(logrus.Fields{"key": info.Key, "size": info.Size}).Info("Backup uploaded")
	return info, nil
}

// Snapshot builds the archive in memory without uploading it.
func (s *BackupService) Snapshot(ctx context.Context) ([]byte, BackupInfo, error) {
	info := BackupInfo{Collections: map[string]int{}, CreatedAt: s.now().UTC()}

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for _, c := range database.AllCollections {
		entries, err := s.store.GetAll(ctx, c)
		if err != nil {
			return nil, BackupInfo{}, errors.Wrapf(err, "reading %s", c)
		}
		docs := make([]json.RawMessage, 0, len(entries))
		for _, e := range entries {
			docs = append(docs, json.RawMessage(e.Data))
		}
		if err := writeZipJSON(zw, string(c)+".json", docs); err != nil {
			return nil, BackupInfo{}, err
		}
		info.Collections[string(c)] = len(entries)
	}

	st, err := s.settings.Get(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Backup metadata without stored settings")
	}
	meta := backupMetadata{
		FormatVersion: backupFormatVersion,
		SchoolName:    st.SchoolName,
		CreatedAt:     info.CreatedAt,
		Collections:   info.Collections,
		Description:   "School records backup",
	}
	if err := writeZipJSON(zw, "metadata.json", meta); err != nil {
		return nil, BackupInfo{}, err
	}
	if err := zw.Close(); err != nil {
		return nil, BackupInfo{}, errors.Wrap(err, "closing backup archive")
	}
	info.Size = buf.Len()
	return buf.Bytes(), info, nil
}

func writeZipJSON(zw *zip.Writer, name string, v interface{}) error {
	w, err := zw.Create(name)
	if err != nil {
		return errors.Wrapf(err, "creating %s in archive", name)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrapf(err, "encoding %s", name)
	}
	return nil
}

// List returns the stored archives, newest first.
func (s *BackupService) List(ctx context.Context) ([]storage.Object, error) {
	if !s.Enabled() {
		return nil, ErrBackupsDisabled
	}
	objs, err := s.objects.List(ctx, s.prefix+"/")
	if err != nil {
		return nil, errors.Wrap(err, "listing backups")
	}
	return objs, nil
}

// Restore downloads the archive at key and upserts every record in it.
func (s *BackupService) Restore(ctx context.Context, key string) (BackupInfo, error) {
	if !s.Enabled() {
		return BackupInfo{}, ErrBackupsDisabled
	}
	data, err := s.objects.Get(ctx, key)
	if err != nil {
		return BackupInfo{}, errors.Wrap(err, "downloading backup")
	}
	info, err := s.RestoreArchive(ctx, data)
	if err != nil {
		return BackupInfo{}, err
	}
	info.Key = key
	logrus.WithFields(logrus.Fields{"key": key, "collections": info.Collections}).Info("Backup restored")
	return info, nil
}

// RestoreArchive upserts every record of an archive built by Snapshot.
// Records missing from the archive are left in place.
func (s *BackupService) RestoreArchive(ctx context.Context, data []byte) (BackupInfo, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return BackupInfo{}, errors.Wrap(err, "opening backup archive")
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	info := BackupInfo{Collections: map[string]int{}, Size: len(data)}
	if f, ok := files["metadata.json"]; ok {
		var meta backupMetadata
		if err := readZipJSON(f, &meta); err != nil {
			return BackupInfo{}, err
		}
		info.CreatedAt = meta.CreatedAt
	}

	err = database.RunInTx(ctx, s.store, func(tx database.Store) error {
		for _, c := range database.AllCollections {
			f, ok := files[string(c)+".json"]
			if !ok {
				continue
			}
			var docs []json.RawMessage
			if err := readZipJSON(f, &docs); err != nil {
				return err
			}
			for _, doc := range docs {
				var head struct {
					ID string `json:"id"`
				}
				if err := json.Unmarshal(doc, &head); err != nil || head.ID == "" {
					return errors.Errorf("%s: record without id", f.Name)
				}
				if err := tx.SaveOne(ctx, c, head.ID, doc); err != nil {
					return err
				}
			}
			info.Collections[string(c)] = len(docs)
		}
		return nil
	})
	if err != nil {
		return BackupInfo{}, errors.Wrap(err, "restoring backup")
	}
	return info, nil
}

func readZipJSON(f *zip.File, v interface{}) error {
	rc, err := f.Open()
	if err != nil {
		return errors.Wrapf(err, "opening %s", f.Name)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return errors.Wrapf(err, "reading %s", f.Name)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrapf(err, "decoding %s", f.Name)
	}
	return nil
}
