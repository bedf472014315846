package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/cryptox"
	"github.com/dmitrijs2005/gophguard/internal/dbx"
	"github.com/dmitrijs2005/gophguard/internal/logging"
	sc "github.com/dmitrijs2005/gophguard/internal/server/config"
	"github.com/dmitrijs2005/gophguard/internal/server/metrics"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophguard/internal/strength"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ExportURLValidity is how long a presigned export download link works.
const ExportURLValidity = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// VaultService stores site credentials sealed with the envelope cipher.
// Every operation is scoped to the owning identity.
type VaultService struct {
	db          dbx.DB
	repomanager repomanager.RepositoryManager
	cipher      *cryptox.EnvelopeCipher
	config      *sc.Config
	logger      logging.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// ExportResult describes an uploaded vault export.
type ExportResult struct {
	ID         string
	StorageKey string
	URL        string
	EntryCount int
	ExpiresAt  time.Time
}

type exportDocument struct {
	Version    int           `json:"version"`
	UserID     string        `json:"user_id"`
	ExportedAt time.Time     `json:"exported_at"`
	Entries    []exportEntry `json:"entries"`
}

type exportEntry struct {
	ID        string    `json:"id"`
	Site      string    `json:"site"`
	Username  string    `json:"username"`
	Blob      string    `json:"blob"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewVaultService(db dbx.DB, repomanager repomanager.RepositoryManager, cipher *cryptox.EnvelopeCipher,
	config *sc.Config, logger logging.Logger, mt *metrics.Metrics) *VaultService {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &VaultService{
		db:          db,
		repomanager: repomanager,
		cipher:      cipher,
		config:      config,
		logger:      logger.With("module", "vault_service"),
		metrics:     mt,
		now:         time.Now,
	}
}

// ExportStorageKey returns a fresh object key for a user's export.
func ExportStorageKey(userID string) string {
	return fmt.Sprintf("exports/%s/%s.json", userID, ulid.Make())
}

// Create scores and seals secret and stores it as a new entry.
func (s *VaultService) Create(ctx context.Context, userID, site, username, secret string) (entry *models.VaultEntry, report strength.Report, err error) {
	defer func() { s.metrics.VaultOperation("create", err) }()

	if site == "" || secret == "" {
		return nil, report, fmt.Errorf("%w: site and secret are required", common.ErrorValidation)
	}

	report = strength.Score(secret)
	blob, err := s.cipher.SealString([]byte(secret))
	if err != nil {
		return nil, report, fmt.Errorf("error sealing secret: %w", err)
	}

	entry = &models.VaultEntry{ID: uuid.NewString(), UserID: userID, Site: site, Username: username, Blob: blob}
	if err := s.repomanager.Entries(s.db).Create(ctx, entry); err != nil {
		return nil, report, fmt.Errorf("error creating entry: %w", err)
	}
	return entry, report, nil
}

// Get returns the entry and its decrypted secret. A tampered blob yields an
// error wrapping common.ErrDecryption; the entry itself is still returned.
func (s *VaultService) Get(ctx context.Context, userID, id string) (entry *models.VaultEntry, secret []byte, err error) {
	defer func() { s.metrics.VaultOperation("get", err) }()

	if err = checkEntryID(id); err != nil {
		return nil, nil, err
	}

	entry, err = s.repomanager.Entries(s.db).Get(ctx, userID, id)
	if err != nil {
		return nil, nil, fmt.Errorf("error getting entry: %w", err)
	}

	secret, err = s.cipher.OpenString(entry.Blob)
	if err != nil {
		s.logger.Warn(ctx, "vault entry unreadable", "entry_id", entry.ID, "error", err)
		return entry, nil, err
	}
	return entry, secret, nil
}

// List returns entry metadata without decrypting anything.
func (s *VaultService) List(ctx context.Context, userID string) ([]*models.VaultEntry, error) {
	list, err := s.repomanager.Entries(s.db).List(ctx, userID)
	s.metrics.VaultOperation("list", err)
	if err != nil {
		return nil, fmt.Errorf("error listing entries: %w", err)
	}
	return list, nil
}

// Update re-seals a new secret under a fresh nonce. Empty site or username
// keep their current values.
func (s *VaultService) Update(ctx context.Context, userID, id, site, username, secret string) (entry *models.VaultEntry, report strength.Report, err error) {
	defer func() { s.metrics.VaultOperation("update", err) }()

	if secret == "" {
		return nil, report, fmt.Errorf("%w: secret is required", common.ErrorValidation)
	}
	if err = checkEntryID(id); err != nil {
		return nil, report, err
	}

	repo := s.repomanager.Entries(s.db)
	entry, err = repo.Get(ctx, userID, id)
	if err != nil {
		return nil, report, fmt.Errorf("error getting entry: %w", err)
	}

	if site != "" {
		entry.Site = site
	}
	if username != "" {
		entry.Username = username
	}

	report = strength.Score(secret)
	if entry.Blob, err = s.cipher.SealString([]byte(secret)); err != nil {
		return nil, report, fmt.Errorf("error sealing secret: %w", err)
	}

	if err := repo.Update(ctx, entry); err != nil {
		return nil, report, fmt.Errorf("error updating entry: %w", err)
	}
	return entry, report, nil
}

// Delete removes an entry owned by userID.
func (s *VaultService) Delete(ctx context.Context, userID, id string) error {
	err := checkEntryID(id)
	if err == nil {
		err = s.repomanager.Entries(s.db).Delete(ctx, userID, id)
	}
	s.metrics.VaultOperation("delete", err)
	if err != nil {
		return fmt.Errorf("error deleting entry: %w", err)
	}
	return nil
}

// checkEntryID rejects ids that cannot name a stored entry before they
// reach the uuid column.
func checkEntryID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("error getting entry: %w", common.ErrorNotFound)
	}
	return nil
}

// Export writes all of the user's entries, still sealed, to object storage
// and returns a presigned download link valid for ExportURLValidity.
func (s *VaultService) Export(ctx context.Context, userID string) (result *ExportResult, err error) {
	defer func() { s.metrics.VaultOperation("export", err) }()

	list, err := s.repomanager.Entries(s.db).List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing entries: %w", err)
	}

	doc := exportDocument{Version: 1, UserID: userID, ExportedAt: s.now().UTC(), Entries: make([]exportEntry, 0, len(list))}
	for _, e := range list {
		doc.Entries = append(doc.Entries, exportEntry{
			ID:        e.ID,
			Site:      e.Site,
			Username:  e.Username,
			Blob:      e.Blob,
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.UpdatedAt,
		})
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	client, presignClient, err := s.getS3Clients(ctx)
	if err != nil {
		return nil, err
	}

	record := &models.Export{
		ID:         uuid.NewString(),
		UserID:     userID,
		StorageKey: ExportStorageKey(userID),
		EntryCount: len(list),
		Status:     models.ExportPending,
	}
	exportsRepo := s.repomanager.Exports(s.db)
	if err := exportsRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("error creating export: %w", err)
	}

	bucket := s.config.S3Bucket
	if _, err := putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &record.StorageKey,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return nil, fmt.Errorf("error uploading export: %w", err)
	}

	if err := exportsRepo.MarkUploaded(ctx, record.ID); err != nil {
		return nil, fmt.Errorf("error updating export: %w", err)
	}

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &record.StorageKey,
	}, s3.WithPresignExpires(ExportURLValidity))
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "vault exported", "user_id", userID, "export_id", record.ID, "entries", record.EntryCount)

	return &ExportResult{
		ID:         record.ID,
		StorageKey: record.StorageKey,
		URL:        req.URL,
		EntryCount: record.EntryCount,
		ExpiresAt:  s.now().Add(ExportURLValidity),
	}, nil
}

// Exports lists the user's previous exports, newest first.
func (s *VaultService) Exports(ctx context.Context, userID string) ([]*models.Export, error) {
	list, err := s.repomanager.Exports(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing exports: %w", err)
	}
	return list, nil
}

func (s *VaultService) getS3Clients(ctx context.Context) (*s3.Client, *s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		// MinIO serves buckets by path, not by virtual host
		o.UsePathStyle = true
	})

	return client, newS3PresignClient(client), nil
}
