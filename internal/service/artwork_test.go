package service_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/linemk/tribal-market/internal/service"
	"github.com/linemk/tribal-market/internal/storage"
)

func (f *marketFixture) artworkService() service.ArtworkService {
	return service.NewArtworkService(newTestLogger(), f.db, f.artworks, f.artists)
}

func (f *marketFixture) artistActor() service.Actor {
	return service.Actor{UserID: f.artistUser.ID, Role: models.RoleArtist}
}

func (f *marketFixture) buyerActor() service.Actor {
	return service.Actor{UserID: f.buyer.ID, Role: models.RoleViewer}
}

func gondInput() service.ArtworkInput {
	return service.ArtworkInput{
		Title:         "Gond Tree of Life",
		Tribe:         "Gond",
		Category:      "painting",
		Price:         decimal.RequireFromString("2499.50"),
		StockQuantity: 3,
		ImageURLs:     []string{"https://cdn.example.com/gond.jpg"},
	}
}

func TestArtworkService_Create(t *testing.T) {
	f := newMarketFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	artwork, err := f.artworkService().Create(context.Background(), f.artistActor(), gondInput())
	require.NoError(t, err)
	assert.Equal(t, f.artist.ID, artwork.ArtistID)
	assert.False(t, artwork.IsVerified)
	assert.True(t, artwork.IsAvailable)
	assert.Equal(t, 1, f.artist.TotalArtworks)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestArtworkService_Create_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		actor   func(f *marketFixture) service.Actor
		mutate  func(in *service.ArtworkInput)
		wantErr error
	}{
		{
			name:    "zero price",
			actor:   (*marketFixture).artistActor,
			mutate:  func(in *service.ArtworkInput) { in.Price = decimal.Zero },
			wantErr: service.ErrValidation,
		},
		{
			name:    "three decimal places",
			actor:   (*marketFixture).artistActor,
			mutate:  func(in *service.ArtworkInput) { in.Price = decimal.RequireFromString("10.999") },
			wantErr: service.ErrValidation,
		},
		{
			name:    "negative stock",
			actor:   (*marketFixture).artistActor,
			mutate:  func(in *service.ArtworkInput) { in.StockQuantity = -1 },
			wantErr: service.ErrValidation,
		},
		{
			name:    "no artist profile",
			actor:   (*marketFixture).buyerActor,
			mutate:  func(in *service.ArtworkInput) {},
			wantErr: service.ErrArtistProfileRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMarketFixture(t)
			in := gondInput()
			tt.mutate(&in)

			_, err := f.artworkService().Create(context.Background(), tt.actor(f), in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, f.artworks.artworks, 1)
			assert.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestArtworkService_Update_ResetsVerification(t *testing.T) {
	f := newMarketFixture(t)
	svc := f.artworkService()

	in := gondInput()
	in.Title = "Warli Harvest Dance II"
	updated, err := svc.Update(context.Background(), f.artistActor(), f.artwork.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Warli Harvest Dance II", updated.Title)
	assert.False(t, updated.IsVerified)

	_, err = svc.Update(context.Background(), f.buyerActor(), f.artwork.ID, in)
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestArtworkService_Delete(t *testing.T) {
	t.Run("owner deletes", func(t *testing.T) {
		f := newMarketFixture(t)
		f.artist.TotalArtworks = 1
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()

		require.NoError(t, f.artworkService().Delete(context.Background(), f.artistActor(), f.artwork.ID))
		assert.Empty(t, f.artworks.artworks)
		assert.Equal(t, 0, f.artist.TotalArtworks)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("artwork with orders", func(t *testing.T) {
		f := newMarketFixture(t)
		f.artworks.hasOrders[f.artwork.ID] = true
		f.mock.ExpectBegin()
		f.mock.ExpectRollback()

		err := f.artworkService().Delete(context.Background(), f.artistActor(), f.artwork.ID)
		assert.ErrorIs(t, err, service.ErrConflict)
		assert.Len(t, f.artworks.artworks, 1)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("stranger", func(t *testing.T) {
		f := newMarketFixture(t)
		err := f.artworkService().Delete(context.Background(), f.buyerActor(), f.artwork.ID)
		assert.ErrorIs(t, err, service.ErrNotOwner)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("admin deletes any", func(t *testing.T) {
		f := newMarketFixture(t)
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()

		admin := service.Actor{UserID: 99, Role: models.RoleAdmin}
		require.NoError(t, f.artworkService().Delete(context.Background(), admin, f.artwork.ID))
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})
}

func TestArtworkService_Get_Visibility(t *testing.T) {
	f := newMarketFixture(t)
	f.artworks.artworks[f.artwork.ID].IsVerified = false
	svc := f.artworkService()
	ctx := context.Background()

	_, err := svc.Get(ctx, service.Actor{}, f.artwork.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = svc.Get(ctx, f.buyerActor(), f.artwork.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	got, err := svc.Get(ctx, f.artistActor(), f.artwork.ID)
	require.NoError(t, err)
	assert.Equal(t, f.artwork.ID, got.ID)

	_, err = svc.Get(ctx, service.Actor{UserID: 99, Role: models.RoleAdmin}, f.artwork.ID)
	assert.NoError(t, err)

	_, err = svc.Get(ctx, service.Actor{}, 404)
	assert.ErrorIs(t, err, service.ErrArtworkNotFound)
}

func TestArtworkService_Browse(t *testing.T) {
	f := newMarketFixture(t)
	f.artworks.add(&models.Artwork{ArtistID: f.artist.ID, Title: "Pending Saura", Price: decimal.NewFromInt(800), StockQuantity: 1})
	svc := f.artworkService()

	artworks, total, err := svc.Browse(context.Background(), storage.ArtworkFilter{}, models.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, f.artwork.ID, artworks[0].ID)

	// флаг verified из запроса не может открыть непроверенные работы
	unverified := false
	_, total, err = svc.Browse(context.Background(), storage.ArtworkFilter{Verified: &unverified}, models.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	lo, hi := decimal.NewFromInt(5000), decimal.NewFromInt(100)
	_, _, err = svc.Browse(context.Background(), storage.ArtworkFilter{MinPrice: &lo, MaxPrice: &hi}, models.Page{})
	assert.ErrorIs(t, err, service.ErrValidation)

	mine, total, err := svc.ListMine(context.Background(), f.artistActor(), models.Page{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, mine, 2)
}

func TestArtistService(t *testing.T) {
	f := newMarketFixture(t)
	svc := service.NewArtistService(newTestLogger(), f.artists)
	ctx := context.Background()

	newArtist := f.users.add(&models.User{ID: 3, Email: "bhil@example.com", Name: "Bhuri", Role: models.RoleArtist, IsActive: true})
	actor := service.Actor{UserID: newArtist.ID, Role: models.RoleArtist}

	_, err := svc.CreateProfile(ctx, f.buyerActor(), service.ArtistProfileInput{Tribe: "Bhil"})
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = svc.UpdateProfile(ctx, actor, service.ArtistProfileInput{Tribe: "Bhil"})
	assert.ErrorIs(t, err, service.ErrArtistProfileRequired)

	profile, err := svc.CreateProfile(ctx, actor, service.ArtistProfileInput{Tribe: "Bhil", Location: "Jhabua"})
	require.NoError(t, err)
	assert.False(t, profile.IsVerified)

	_, err = svc.CreateProfile(ctx, actor, service.ArtistProfileInput{Tribe: "Bhil"})
	assert.ErrorIs(t, err, service.ErrConflict)

	updated, err := svc.UpdateProfile(ctx, actor, service.ArtistProfileInput{Tribe: "Bhil", Bio: "Pithora painter"})
	require.NoError(t, err)
	assert.Equal(t, "Pithora painter", updated.Bio)

	// неверифицированный профиль виден только владельцу и администратору
	_, err = svc.Get(ctx, f.buyerActor(), profile.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
	_, err = svc.Get(ctx, actor, profile.ID)
	assert.NoError(t, err)

	artists, total, err := svc.ListVerified(ctx, "", "", models.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, f.artist.ID, artists[0].ID)
}

func TestReviewService(t *testing.T) {
	f := newMarketFixture(t)
	reviews := &fakeReviewRepo{}
	svc := service.NewReviewService(newTestLogger(), reviews, f.artworks)
	ctx := context.Background()

	_, err := svc.Create(ctx, f.buyer.ID, f.artwork.ID, 6, "")
	assert.ErrorIs(t, err, service.ErrValidation)

	review, err := svc.Create(ctx, f.buyer.ID, f.artwork.ID, 5, "Beautiful brushwork")
	require.NoError(t, err)
	assert.Equal(t, 5, review.Rating)

	_, err = svc.Create(ctx, f.buyer.ID, f.artwork.ID, 4, "again")
	assert.ErrorIs(t, err, service.ErrReviewExists)

	hidden := f.artworks.add(&models.Artwork{ArtistID: f.artist.ID, Title: "Draft", Price: decimal.NewFromInt(10)})
	_, err = svc.Create(ctx, f.buyer.ID, hidden.ID, 4, "")
	assert.ErrorIs(t, err, service.ErrNotFound)

	list, total, err := svc.List(ctx, f.artwork.ID, models.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Beautiful brushwork", list[0].Comment)
}
