package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"property-market-backend/internal/models"
	"property-market-backend/internal/repository/memstore"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresigner struct {
	input   *s3.PutObjectInput
	expires time.Duration
	err     error
}

func (f *fakePresigner) PresignPutObject(_ context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	f.expires = opts.Expires
	return &v4.PresignedHTTPRequest{
		URL:    "https://uploads.example.com/" + aws.ToString(params.Key) + "?X-Amz-Signature=abc",
		Method: http.MethodPut,
	}, nil
}

func TestImageService_RequestUpload(t *testing.T) {
	db := memstore.New()
	presigner := &fakePresigner{}
	svc := NewImageServiceWithPresigner(db.Properties(), presigner, "listing-images", "https://cdn.example.com/")
	owner := seedUser(t, db, "alice")
	p := seedProperty(t, db, owner, "Loft", time.Now())

	res, err := svc.RequestUpload(context.Background(), owner.ID, p.ID, UploadRequest{
		Filename:    "Kitchen.JPG",
		ContentType: "image/jpeg",
	})
	require.NoError(t, err)

	assert.Equal(t, 300, res.ExpiresIn)
	assert.Equal(t, 5*time.Minute, presigner.expires)
	assert.Equal(t, "listing-images", aws.ToString(presigner.input.Bucket))
	assert.Equal(t, "image/jpeg", aws.ToString(presigner.input.ContentType))

	key := aws.ToString(presigner.input.Key)
	assert.True(t, strings.HasPrefix(key, "properties/"+p.ID+"/"), key)
	assert.True(t, strings.HasSuffix(key, ".jpg"), key)
	assert.Equal(t, "https://cdn.example.com/"+key, res.ImageURL)
	assert.Contains(t, res.UploadURL, key)

	stored, err := db.Properties().GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{res.ImageURL}, stored.Images)
}

func TestImageService_RequestUploadRejections(t *testing.T) {
	db := memstore.New()
	presigner := &fakePresigner{}
	svc := NewImageServiceWithPresigner(db.Properties(), presigner, "bucket", "https://cdn.example.com")
	owner := seedUser(t, db, "alice")
	other := seedUser(t, db, "bob")
	p := seedProperty(t, db, owner, "Loft", time.Now())
	ctx := context.Background()

	_, err := svc.RequestUpload(ctx, owner.ID, p.ID, UploadRequest{Filename: "notes.txt", ContentType: "text/plain"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.RequestUpload(ctx, other.ID, p.ID, UploadRequest{Filename: "a.png", ContentType: "image/png"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.RequestUpload(ctx, owner.ID, uuid.NewString(), UploadRequest{Filename: "a.png", ContentType: "image/png"})
	assert.ErrorIs(t, err, ErrNotFound)

	presigner.err = errors.New("signing failed")
	_, err = svc.RequestUpload(ctx, owner.ID, p.ID, UploadRequest{Filename: "a.png", ContentType: "image/png"})
	assert.Error(t, err)

	stored, err := db.Properties().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Images)
}

// castingProperties fails the way postgres does when an id is not a uuid
type castingProperties struct {
	memstore.Properties
	lookups int
}

func (c *castingProperties) GetByID(ctx context.Context, id string) (*models.Property, error) {
	c.lookups++
	return nil, errors.New(`ERROR: invalid input syntax for type uuid: "` + id + `" (SQLSTATE 22P02)`)
}

func TestImageService_RequestUploadMalformedID(t *testing.T) {
	db := memstore.New()
	store := &castingProperties{Properties: db.Properties()}
	svc := NewImageServiceWithPresigner(store, &fakePresigner{}, "bucket", "https://cdn.example.com")
	owner := seedUser(t, db, "alice")

	_, err := svc.RequestUpload(context.Background(), owner.ID, "not-a-uuid", UploadRequest{Filename: "a.png", ContentType: "image/png"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, store.lookups)
}
