package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/cryptox"
	sc "github.com/dmitrijs2005/gophguard/internal/server/config"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
	"github.com/dmitrijs2005/gophguard/internal/strength"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVaultService(t *testing.T) (*VaultService, *fakeRepoManager) {
	t.Helper()
	db, _ := newSQLMockDB(t)
	rm := newFakeRepoManager()

	cipher, err := cryptox.NewEnvelopeCipher(bytes.Repeat([]byte{7}, cryptox.KeySize))
	require.NoError(t, err)

	cfg := &sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "vault",
	}
	return NewVaultService(db, rm, cipher, cfg, nil, nil), rm
}

func TestVault_CreateAndGet(t *testing.T) {
	svc, rm := newVaultService(t)
	ctx := context.Background()

	entry, report, err := svc.Create(ctx, "u1", "example.com", "alice", "Tr0ub4dor&3xyz!")
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.NotEqual(t, strength.LevelWeak, report.Level)

	stored, err := rm.entries.Get(ctx, "u1", entry.ID)
	require.NoError(t, err)
	assert.NotContains(t, stored.Blob, "Tr0ub4dor")
	_, err = cryptox.ParseBlob(stored.Blob)
	require.NoError(t, err, "stored value must be an envelope blob")

	got, secret, err := svc.Get(ctx, "u1", entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "example.com", got.Site)
	assert.Equal(t, "Tr0ub4dor&3xyz!", string(secret))
}

func TestVault_CreateValidation(t *testing.T) {
	svc, _ := newVaultService(t)

	_, _, err := svc.Create(context.Background(), "u1", "", "alice", "secret")
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, _, err = svc.Create(context.Background(), "u1", "example.com", "alice", "")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestVault_CreateRepoError(t *testing.T) {
	svc, rm := newVaultService(t)
	rm.entries.createErr = errors.New("boom")

	_, _, err := svc.Create(context.Background(), "u1", "example.com", "alice", "secret")
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`error creating entry: .*boom`), err.Error())
}

func TestVault_OtherUsersEntryIsNotFound(t *testing.T) {
	svc, _ := newVaultService(t)
	ctx := context.Background()

	entry, _, err := svc.Create(ctx, "u1", "example.com", "alice", "secret-value")
	require.NoError(t, err)

	_, _, err = svc.Get(ctx, "u2", entry.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	err = svc.Delete(ctx, "u2", entry.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, _, err = svc.Update(ctx, "u2", entry.ID, "", "", "new-secret")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestVault_MalformedIDIsNotFound(t *testing.T) {
	svc, rm := newVaultService(t)
	ctx := context.Background()

	// A row the store would return if the id were passed through.
	rm.entries.byID["not-a-uuid"] = &models.VaultEntry{ID: "not-a-uuid", UserID: "u1", Site: "s"}

	_, _, err := svc.Get(ctx, "u1", "not-a-uuid")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, _, err = svc.Update(ctx, "u1", "not-a-uuid", "", "", "new-secret")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	err = svc.Delete(ctx, "u1", "not-a-uuid")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	assert.Contains(t, rm.entries.byID, "not-a-uuid")
}

func TestVault_TamperedBlobIsDecryptionError(t *testing.T) {
	svc, rm := newVaultService(t)
	ctx := context.Background()

	entry, _, err := svc.Create(ctx, "u1", "example.com", "alice", "secret-value")
	require.NoError(t, err)

	stored := rm.entries.byID[entry.ID]
	last := stored.Blob[len(stored.Blob)-1]
	flipped := byte('0')
	if last == '0' {
		flipped = '1'
	}
	stored.Blob = stored.Blob[:len(stored.Blob)-1] + string(flipped)

	got, secret, err := svc.Get(ctx, "u1", entry.ID)
	assert.ErrorIs(t, err, common.ErrDecryption)
	assert.Nil(t, secret)
	require.NotNil(t, got, "metadata stays readable")
}

func TestVault_UpdateReseals(t *testing.T) {
	svc, rm := newVaultService(t)
	ctx := context.Background()

	entry, _, err := svc.Create(ctx, "u1", "example.com", "alice", "same-secret")
	require.NoError(t, err)
	before := rm.entries.byID[entry.ID].Blob

	updated, _, err := svc.Update(ctx, "u1", entry.ID, "", "bob", "same-secret")
	require.NoError(t, err)
	assert.Equal(t, "example.com", updated.Site)
	assert.Equal(t, "bob", updated.Username)
	assert.NotEqual(t, before, rm.entries.byID[entry.ID].Blob, "a fresh nonce must change the blob")

	_, secret, err := svc.Get(ctx, "u1", entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "same-secret", string(secret))
}

func TestVault_ListAndDelete(t *testing.T) {
	svc, _ := newVaultService(t)
	ctx := context.Background()

	a, _, _ := svc.Create(ctx, "u1", "b.example", "alice", "secret-1")
	_, _, _ = svc.Create(ctx, "u1", "a.example", "alice", "secret-2")
	_, _, _ = svc.Create(ctx, "u2", "c.example", "bob", "secret-3")

	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a.example", list[0].Site)

	require.NoError(t, svc.Delete(ctx, "u1", a.ID))
	list, _ = svc.List(ctx, "u1")
	assert.Len(t, list, 1)
}

// stubS3 replaces the S3 seams for one test.
func stubS3(t *testing.T) *bytes.Buffer {
	t.Helper()

	origLoad, origNewS3, origNewPre := loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient
	origPut, origPresign := putObject, presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		putObject = origPut
		presignGetObject = origPresign
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		if lo.Region != "us-east-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		if opts.BaseEndpoint == nil || *opts.BaseEndpoint != "http://127.0.0.1:9000" {
			t.Fatalf("BaseEndpoint not applied")
		}
		if !opts.UsePathStyle {
			t.Fatalf("path style addressing not enabled")
		}
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return &s3.PresignClient{} }

	uploaded := &bytes.Buffer{}
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		if aws.ToString(in.Bucket) != "vault" {
			t.Fatalf("bucket: %q", aws.ToString(in.Bucket))
		}
		if _, err := io.Copy(uploaded, in.Body); err != nil {
			t.Fatalf("read body: %v", err)
		}
		return &s3.PutObjectOutput{}, nil
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		if po.Expires != ExportURLValidity {
			t.Fatalf("presign expiry: %v", po.Expires)
		}
		return &v4.PresignedHTTPRequest{URL: "http://127.0.0.1:9000/vault/" + aws.ToString(in.Key)}, nil
	}
	return uploaded
}

func TestVault_Export(t *testing.T) {
	svc, _ := newVaultService(t)
	ctx := context.Background()
	uploaded := stubS3(t)

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	_, _, _ = svc.Create(ctx, "u1", "example.com", "alice", "secret-1")
	_, _, _ = svc.Create(ctx, "u1", "example.org", "alice", "secret-2")

	res, err := svc.Export(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.EntryCount)
	assert.Regexp(t, `^exports/u1/[0-9A-Z]{26}\.json$`, res.StorageKey)
	assert.Contains(t, res.URL, res.StorageKey)
	assert.Equal(t, fixed.Add(15*time.Minute), res.ExpiresAt)

	var doc exportDocument
	require.NoError(t, json.Unmarshal(uploaded.Bytes(), &doc))
	require.Len(t, doc.Entries, 2)
	for _, e := range doc.Entries {
		_, err := cryptox.ParseBlob(e.Blob)
		assert.NoError(t, err, "exported secrets stay sealed")
	}
	assert.NotContains(t, uploaded.String(), "secret-1")

	exports, err := svc.Exports(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, exports, 1)
	assert.Equal(t, models.ExportCompleted, exports[0].Status)
	assert.Equal(t, res.StorageKey, exports[0].StorageKey)
}

func TestVault_ExportUploadFailureLeavesPending(t *testing.T) {
	svc, _ := newVaultService(t)
	ctx := context.Background()
	stubS3(t)

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return nil, errors.New("put-fail")
	}

	_, err := svc.Export(ctx, "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "put-fail")

	exports, _ := svc.Exports(ctx, "u1")
	require.Len(t, exports, 1)
	assert.Equal(t, models.ExportPending, exports[0].Status)
}

func TestVault_ExportClientFactoryError(t *testing.T) {
	svc, _ := newVaultService(t)
	stubS3(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}

	_, err := svc.Export(context.Background(), "u1")
	if err == nil || err.Error() != "load-fail" {
		t.Fatalf("want load-fail, got %v", err)
	}
}

func TestExportStorageKey_Unique(t *testing.T) {
	a, b := ExportStorageKey("u1"), ExportStorageKey("u1")
	assert.NotEqual(t, a, b)
}
