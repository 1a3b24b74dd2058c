package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/linemk/tribal-market/internal/service"
)

type fakeOps struct {
	created  []string
	verified map[int64]bool
	closed   bool
}

func (f *fakeOps) CreateAdmin(ctx context.Context, email, password, name string) (*models.User, error) {
	if len(password) < 8 {
		return nil, service.ErrValidation
	}
	f.created = append(f.created, email)
	return &models.User{ID: 1, Email: email, Name: name, Role: models.RoleAdmin}, nil
}

func (f *fakeOps) VerifyArtist(ctx context.Context, artistID int64, verified bool) (*models.Artist, error) {
	if artistID == 404 {
		return nil, service.ErrArtistNotFound
	}
	f.verified[artistID] = verified
	return &models.Artist{ID: artistID, Name: "Asha", IsVerified: verified}, nil
}

func (f *fakeOps) VerifyArtwork(ctx context.Context, artworkID int64, verified bool) (*models.Artwork, error) {
	f.verified[artworkID] = verified
	return &models.Artwork{ID: artworkID, Title: "Warli Harvest Dance", IsVerified: verified}, nil
}

func run(t *testing.T, ops *fakeOps, args ...string) (string, error) {
	t.Helper()
	var gotPath string
	cmd := newRootCmd(func(configPath string) (operations, func(), error) {
		gotPath = configPath
		return ops, func() { ops.closed = true }, nil
	})
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		assert.Equal(t, "./config/local.yaml", gotPath)
	}
	return out.String(), err
}

func TestCreateAdmin(t *testing.T) {
	ops := &fakeOps{verified: map[int64]bool{}}

	out, err := run(t, ops, "--config", "./config/local.yaml", "create-admin", "--email", "root@example.com", "--password", "password123")
	require.NoError(t, err)
	assert.Contains(t, out, "admin root@example.com created (id 1)")
	assert.Equal(t, []string{"root@example.com"}, ops.created)
	assert.True(t, ops.closed)

	_, err = run(t, ops, "--config", "./config/local.yaml", "create-admin", "--password", "password123")
	assert.Error(t, err, "email is required")

	_, err = run(t, ops, "--config", "./config/local.yaml", "create-admin", "--email", "x@example.com", "--password", "short")
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestVerifyCommands(t *testing.T) {
	ops := &fakeOps{verified: map[int64]bool{}}

	out, err := run(t, ops, "--config", "./config/local.yaml", "verify-artist", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "artist 100 (Asha) is now verified")
	assert.True(t, ops.verified[100])

	out, err = run(t, ops, "--config", "./config/local.yaml", "verify-artwork", "7", "--revoke")
	require.NoError(t, err)
	assert.Contains(t, out, `artwork 7 "Warli Harvest Dance" is now unverified`)
	assert.False(t, ops.verified[7])

	_, err = run(t, ops, "--config", "./config/local.yaml", "verify-artist", "abc")
	assert.EqualError(t, err, `invalid id "abc"`)

	_, err = run(t, ops, "--config", "./config/local.yaml", "verify-artist", "404")
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = run(t, ops, "--config", "./config/local.yaml", "verify-artwork")
	assert.Error(t, err)
}
