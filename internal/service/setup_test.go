package service

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fileward/fileward/internal/db"
	"github.com/fileward/fileward/internal/model"
	"github.com/fileward/fileward/internal/repository"
	"github.com/fileward/fileward/internal/storage"
	"github.com/fileward/fileward/internal/webauthn"
)

// env bundles everything a service test needs: a migrated database, all
// repositories, the services under test and swappable collaborators.
type env struct {
	db *sqlx.DB

	fileRepo       repository.FileRepository
	shareRepo      repository.ShareRepository
	deviceRepo     repository.DeviceRepository
	challengeRepo  repository.ChallengeRepository
	tokenRepo      repository.DownloadTokenRepository
	validationRepo repository.UploadValidationRepository
	usageRepo      repository.UsageRepository

	tokens    *TokenService
	shares    *ShareService
	access    *AccessService
	downloads *DownloadService
	quota     *QuotaService
	files     *FileService

	storage  *fakeStorage
	verifier *fakeVerifier
}

func setup(t *testing.T) *env {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	database, err := db.Init("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	err = db.RunMigrations(database.DB, "sqlite")
	if err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	e := &env{
		db:             database,
		fileRepo:       repository.NewFileRepository(database),
		shareRepo:      repository.NewShareRepository(database),
		deviceRepo:     repository.NewDeviceRepository(database),
		challengeRepo:  repository.NewChallengeRepository(database),
		tokenRepo:      repository.NewDownloadTokenRepository(database),
		validationRepo: repository.NewUploadValidationRepository(database),
		usageRepo:      repository.NewUsageRepository(database),
		storage:        newFakeStorage(),
		verifier:       &fakeVerifier{},
	}

	e.tokens = NewTokenService("test-secret")
	audit := NewAuditService(repository.NewAccessLogRepository(database))
	e.shares = NewShareService(e.shareRepo, e.fileRepo, e.usageRepo, audit)
	e.access = NewAccessService(
		e.shares, e.shareRepo, e.deviceRepo, e.challengeRepo,
		e.tokens, e.verifier, audit,
		"https://fileward.test", 2*time.Minute, 5*time.Minute,
	)
	e.downloads = NewDownloadService(e.access, e.tokenRepo, e.fileRepo, e.tokens, audit)
	e.quota = NewQuotaService(e.fileRepo, e.validationRepo, e.usageRepo, e.storage, e.tokens, 1<<30)
	e.files = NewFileService(e.fileRepo, e.storage)
	return e
}

func (e *env) user(t *testing.T, uid string) {
	t.Helper()
	err := repository.NewUserRepository(e.db).Create(&model.User{ID: uid, Email: uid + "@example.com"})
	if err != nil {
		t.Fatalf("seed user %s: %v", uid, err)
	}
}

func (e *env) file(t *testing.T, ownerUID string, mutations ...func(*model.File)) *model.File {
	t.Helper()
	file := &model.File{
		ID:          uuid.NewString(),
		OwnerUID:    ownerUID,
		Name:        "report.pdf",
		StoragePath: "objects/" + uuid.NewString(),
		Size:        2048,
		ContentType: "application/pdf",
		ShareMode:   model.ModePublic,
		ExpiresAt:   time.Now().Add(24 * time.Hour),
		CreatedAt:   time.Now(),
	}
	for _, mutate := range mutations {
		mutate(file)
	}
	err := e.fileRepo.Create(file)
	if err != nil {
		t.Fatalf("seed file: %v", err)
	}
	// Back the record with a small stand-in object; tests that care about
	// the stored byte count write their own.
	backing := file.Size
	if backing > 4096 {
		backing = 4096
	}
	e.storage.objects[file.StoragePath] = bytes.Repeat([]byte{0x42}, int(backing))
	return file
}

func (e *env) share(t *testing.T, file *model.File) *model.Share {
	t.Helper()
	share := &model.Share{FileID: file.ID, OwnerUID: file.OwnerUID, Valid: true}
	err := e.shareRepo.Create(share)
	if err != nil {
		t.Fatalf("seed share: %v", err)
	}
	return share
}

func identity(uid string) *model.Identity {
	return &model.Identity{UID: uid, Email: uid + "@example.com"}
}

// fakeStorage is an in-memory storage.Storage.
type fakeStorage struct {
	objects map[string][]byte
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (s *fakeStorage) Save(path string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[path] = data
	return nil
}

func (s *fakeStorage) Delete(path string) error {
	delete(s.objects, path)
	s.deleted = append(s.deleted, path)
	return nil
}

func (s *fakeStorage) Exists(path string) (bool, error) {
	_, ok := s.objects[path]
	return ok, nil
}

func (s *fakeStorage) Size(path string) (int64, error) {
	data, ok := s.objects[path]
	if !ok {
		return 0, storage.ErrObjectNotFound
	}
	return int64(len(data)), nil
}

func (s *fakeStorage) Open(path string) (io.ReadCloser, error) {
	data, ok := s.objects[path]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// fakeVerifier scripts the webauthn collaborator.
type fakeVerifier struct {
	result     *webauthn.Result
	assertErr  error
	credential *webauthn.Credential
	regErr     error
}

func (v *fakeVerifier) VerifyAssertion(challenge, origin string, publicKey []byte, response *webauthn.AssertionResponse) (*webauthn.Result, error) {
	if v.assertErr != nil {
		return nil, v.assertErr
	}
	if v.result != nil {
		return v.result, nil
	}
	return &webauthn.Result{Verified: true, NewCounter: 1}, nil
}

func (v *fakeVerifier) VerifyRegistration(challenge, origin string, response *webauthn.RegistrationResponse) (*webauthn.Credential, error) {
	if v.regErr != nil {
		return nil, v.regErr
	}
	if v.credential != nil {
		return v.credential, nil
	}
	return &webauthn.Credential{ID: "cred-1", PublicKey: []byte{0xa5}, Counter: 0}, nil
}
