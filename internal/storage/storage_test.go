package storage

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUniqueFilename(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	a := UniqueFilename("jobs/12", "front view (1).JPG", now)
	b := UniqueFilename("jobs/12", "front view (1).JPG", now)

	assert.True(t, strings.HasPrefix(a, "jobs/12/20240501-"))
	assert.True(t, strings.HasSuffix(a, "-front_view_1_.JPG"))
	assert.NotEqual(t, a, b)
}

func TestPhotoContentType(t *testing.T) {
	ct, ok := PhotoContentType("a.PNG")
	assert.True(t, ok)
	assert.Equal(t, "image/png", ct)

	_, ok = PhotoContentType("notes.pdf")
	assert.False(t, ok)
}

func TestLocalStore_SaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/uploads")
	require.NoError(t, err)
	ctx := context.Background()

	ref, err := store.Save(ctx, UploadInput{Key: "jobs/1/a.png", Body: []byte("png"), ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/jobs/1/a.png", ref)

	data, err := os.ReadFile(filepath.Join(dir, "jobs", "1", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)

	require.NoError(t, store.Delete(ctx, ref))
	_, err = os.Stat(filepath.Join(dir, "jobs", "1", "a.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(ctx, ref), "deleting twice is not an error")
	assert.ErrorIs(t, store.Delete(ctx, "https://elsewhere/x.png"), ErrUnknownReference)
	assert.ErrorIs(t, store.Delete(ctx, "/uploads/../etc/passwd"), ErrUnknownReference)
}

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (m *mockS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.DeleteObjectOutput), args.Error(1)
}

func TestS3Store_SaveAndDelete(t *testing.T) {
	client := new(mockS3)
	store := newS3Store(client, "photos", "/jobs/", "https://cdn.example.com")
	ctx := context.Background()

	client.On("PutObject", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Bucket == "photos" && *in.Key == "jobs/1/a.jpg" && *in.ContentType == "image/jpeg"
	})).Return(&s3.PutObjectOutput{}, nil)
	client.On("DeleteObject", ctx, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return *in.Bucket == "photos" && *in.Key == "jobs/1/a.jpg"
	})).Return(&s3.DeleteObjectOutput{}, nil)

	ref, err := store.Save(ctx, UploadInput{Key: "1/a.jpg", Body: []byte("jpg"), ContentType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/jobs/1/a.jpg", ref)

	require.NoError(t, store.Delete(ctx, ref))
	client.AssertExpectations(t)
}

func TestS3Store_SaveError(t *testing.T) {
	client := new(mockS3)
	store := newS3Store(client, "photos", "", "https://cdn.example.com")
	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	_, err := store.Save(context.Background(), UploadInput{Key: "a.jpg"})
	assert.Error(t, err)
}

func testPNG(t *testing.T, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDownscale(t *testing.T) {
	wide := testPNG(t, 400, 200)

	out, err := Downscale(wide, "site.png", 100)
	require.NoError(t, err)
	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())

	small := testPNG(t, 80, 40)
	out, err = Downscale(small, "site.png", 100)
	require.NoError(t, err)
	assert.Equal(t, small, out)

	out, err = Downscale(wide, "site.png", 0)
	require.NoError(t, err)
	assert.Equal(t, wide, out)

	_, err = Downscale([]byte("not an image"), "site.png", 100)
	assert.Error(t, err)
}
