package service_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/linemk/tribal-market/internal/events"
	"github.com/linemk/tribal-market/internal/storage"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

type fakeUserRepo struct {
	users       map[string]*models.User // ключ: email
	otpFailures map[int64]int
}

var _ storage.UserStorage = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User), otpFailures: make(map[int64]int)}
}

func (f *fakeUserRepo) add(u *models.User) *models.User {
	if u.ID == 0 {
		u.ID = int64(len(f.users) + 1)
	}
	f.users[u.Email] = u
	return u
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if _, ok := f.users[user.Email]; ok {
		return nil, storage.ErrUserExists
	}
	return f.add(user), nil
}

func (f *fakeUserRepo) SetOTP(ctx context.Context, id int64, otpHash []byte, expiresAt time.Time) error {
	u, err := f.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	u.OTPHash = otpHash
	u.OTPExpiresAt = &expiresAt
	f.otpFailures[id] = 0
	return nil
}

func (f *fakeUserRepo) RegisterOTPFailure(ctx context.Context, id int64, limit int) error {
	u, err := f.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	f.otpFailures[id]++
	if f.otpFailures[id] >= limit {
		u.OTPHash = nil
		u.OTPExpiresAt = nil
	}
	return nil
}

func (f *fakeUserRepo) ResetPassword(ctx context.Context, id int64, passHash []byte) error {
	u, err := f.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	u.PassHash = passHash
	u.OTPHash = nil
	u.OTPExpiresAt = nil
	return nil
}

func (f *fakeUserRepo) SetActive(ctx context.Context, id int64, active bool) error {
	u, err := f.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	u.IsActive = active
	return nil
}

func (f *fakeUserRepo) SetRole(ctx context.Context, id int64, role models.Role) error {
	u, err := f.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	u.Role = role
	return nil
}

func (f *fakeUserRepo) ListUsers(ctx context.Context, role *models.Role, page models.Page) ([]*models.User, int, error) {
	var out []*models.User
	for _, u := range f.users {
		if role == nil || u.Role == *role {
			out = append(out, u)
		}
	}
	return out, len(out), nil
}

func (f *fakeUserRepo) CountByRole(ctx context.Context) (map[models.Role]int, error) {
	counts := make(map[models.Role]int)
	for _, u := range f.users {
		counts[u.Role]++
	}
	return counts, nil
}

type fakeArtistRepo struct {
	artists map[int64]*models.Artist // ключ: id художника
}

var _ storage.ArtistStorage = (*fakeArtistRepo)(nil)

func newFakeArtistRepo() *fakeArtistRepo {
	return &fakeArtistRepo{artists: make(map[int64]*models.Artist)}
}

func (f *fakeArtistRepo) CreateArtist(ctx context.Context, artist *models.Artist) (*models.Artist, error) {
	if _, err := f.GetArtistByUserID(ctx, artist.UserID); err == nil {
		return nil, storage.ErrArtistExists
	}
	if artist.ID == 0 {
		artist.ID = int64(len(f.artists) + 100)
	}
	f.artists[artist.ID] = artist
	return artist, nil
}

func (f *fakeArtistRepo) UpdateArtist(ctx context.Context, artist *models.Artist) error {
	existing, err := f.GetArtistByUserID(ctx, artist.UserID)
	if err != nil {
		return err
	}
	existing.Tribe, existing.Location, existing.Bio = artist.Tribe, artist.Location, artist.Bio
	return nil
}

func (f *fakeArtistRepo) GetArtistByID(ctx context.Context, id int64) (*models.Artist, error) {
	a, ok := f.artists[id]
	if !ok {
		return nil, storage.ErrArtistNotFound
	}
	return a, nil
}

func (f *fakeArtistRepo) GetArtistByUserID(ctx context.Context, userID int64) (*models.Artist, error) {
	for _, a := range f.artists {
		if a.UserID == userID {
			return a, nil
		}
	}
	return nil, storage.ErrArtistNotFound
}

func (f *fakeArtistRepo) ListArtists(ctx context.Context, filter storage.ArtistFilter, page models.Page) ([]*models.Artist, int, error) {
	var out []*models.Artist
	for _, a := range f.artists {
		if filter.Verified == nil || a.IsVerified == *filter.Verified {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

func (f *fakeArtistRepo) SetVerified(ctx context.Context, id int64, verified bool) error {
	a, err := f.GetArtistByID(ctx, id)
	if err != nil {
		return err
	}
	a.IsVerified = verified
	return nil
}

func (f *fakeArtistRepo) IncrementSales(ctx context.Context, tx *sql.Tx, id int64, quantity int) error {
	a, err := f.GetArtistByID(ctx, id)
	if err != nil {
		return err
	}
	a.TotalSales += quantity
	return nil
}

func (f *fakeArtistRepo) AdjustArtworkCount(ctx context.Context, tx *sql.Tx, id int64, delta int) error {
	a, err := f.GetArtistByID(ctx, id)
	if err != nil {
		return err
	}
	a.TotalArtworks += delta
	return nil
}

func (f *fakeArtistRepo) CountVerification(ctx context.Context) (int, int, error) {
	var verified, pending int
	for _, a := range f.artists {
		if a.IsVerified {
			verified++
		} else {
			pending++
		}
	}
	return verified, pending, nil
}

type fakeArtworkRepo struct {
	artworks  map[int64]*models.Artwork
	hasOrders map[int64]bool
	nextID    int64
}

var _ storage.ArtworkStorage = (*fakeArtworkRepo)(nil)

func newFakeArtworkRepo() *fakeArtworkRepo {
	return &fakeArtworkRepo{artworks: make(map[int64]*models.Artwork), hasOrders: make(map[int64]bool), nextID: 1}
}

func (f *fakeArtworkRepo) add(a *models.Artwork) *models.Artwork {
	if a.ID == 0 {
		a.ID = f.nextID
		f.nextID++
	}
	f.artworks[a.ID] = a
	return a
}

func (f *fakeArtworkRepo) CreateArtwork(ctx context.Context, tx *sql.Tx, artwork *models.Artwork) (int64, error) {
	artwork.IsAvailable = artwork.StockQuantity > 0
	return f.add(artwork).ID, nil
}

func (f *fakeArtworkRepo) UpdateArtwork(ctx context.Context, artwork *models.Artwork) error {
	existing, ok := f.artworks[artwork.ID]
	if !ok {
		return storage.ErrArtworkNotFound
	}
	existing.Title = artwork.Title
	existing.Description = artwork.Description
	existing.Tribe = artwork.Tribe
	existing.Category = artwork.Category
	existing.Price = artwork.Price
	existing.StockQuantity = artwork.StockQuantity
	existing.IsAvailable = artwork.StockQuantity > 0
	existing.ImageURLs = artwork.ImageURLs
	existing.IsVerified = false
	return nil
}

func (f *fakeArtworkRepo) DeleteArtwork(ctx context.Context, tx *sql.Tx, id int64) error {
	if _, ok := f.artworks[id]; !ok {
		return storage.ErrArtworkNotFound
	}
	if f.hasOrders[id] {
		return storage.ErrArtworkHasOrders
	}
	delete(f.artworks, id)
	return nil
}

func (f *fakeArtworkRepo) GetArtworkByID(ctx context.Context, id int64) (*models.Artwork, error) {
	a, ok := f.artworks[id]
	if !ok {
		return nil, storage.ErrArtworkNotFound
	}
	copied := *a
	return &copied, nil
}

func (f *fakeArtworkRepo) LockArtworkByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Artwork, error) {
	return f.GetArtworkByID(ctx, id)
}

func (f *fakeArtworkRepo) DecrementStock(ctx context.Context, tx *sql.Tx, id int64, quantity int) error {
	a, ok := f.artworks[id]
	if !ok || a.StockQuantity < quantity {
		return storage.ErrInsufficientStock
	}
	a.StockQuantity -= quantity
	a.IsAvailable = a.StockQuantity > 0
	return nil
}

func (f *fakeArtworkRepo) Restock(ctx context.Context, tx *sql.Tx, id int64, quantity int) error {
	a, ok := f.artworks[id]
	if !ok {
		return storage.ErrArtworkNotFound
	}
	a.StockQuantity += quantity
	a.IsAvailable = true
	return nil
}

func (f *fakeArtworkRepo) ListArtworks(ctx context.Context, filter storage.ArtworkFilter, page models.Page) ([]*models.Artwork, int, error) {
	var out []*models.Artwork
	for _, a := range f.artworks {
		if filter.Verified != nil && a.IsVerified != *filter.Verified {
			continue
		}
		if filter.ArtistID != nil && a.ArtistID != *filter.ArtistID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (f *fakeArtworkRepo) SetVerified(ctx context.Context, id int64, verified bool) error {
	a, ok := f.artworks[id]
	if !ok {
		return storage.ErrArtworkNotFound
	}
	a.IsVerified = verified
	return nil
}

func (f *fakeArtworkRepo) CountVerification(ctx context.Context) (int, int, error) {
	var verified, pending int
	for _, a := range f.artworks {
		if a.IsVerified {
			verified++
		} else {
			pending++
		}
	}
	return verified, pending, nil
}

type fakeOrderRepo struct {
	orders map[int64]*models.Order
	nextID int64
}

var _ storage.OrderStorage = (*fakeOrderRepo)(nil)

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[int64]*models.Order), nextID: 1}
}

func (f *fakeOrderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error) {
	order.ID = f.nextID
	f.nextID++
	copied := *order
	f.orders[order.ID] = &copied
	return order.ID, nil
}

func (f *fakeOrderRepo) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	copied := *o
	return &copied, nil
}

func (f *fakeOrderRepo) LockOrderByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	return f.GetOrderByID(ctx, id)
}

func (f *fakeOrderRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id int64, status models.OrderStatus, paymentStatus models.PaymentStatus) error {
	o, ok := f.orders[id]
	if !ok {
		return storage.ErrOrderNotFound
	}
	o.Status = status
	o.PaymentStatus = paymentStatus
	return nil
}

func (f *fakeOrderRepo) ListOrders(ctx context.Context, filter storage.OrderFilter, page models.Page) ([]*models.Order, int, error) {
	var out []*models.Order
	for _, o := range f.orders {
		if filter.BuyerID != nil && o.BuyerID != *filter.BuyerID {
			continue
		}
		if filter.ArtistID != nil && o.ArtistID != *filter.ArtistID {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		out = append(out, o)
	}
	return out, len(out), nil
}

func (f *fakeOrderRepo) CountByStatus(ctx context.Context) (map[models.OrderStatus]int, error) {
	counts := make(map[models.OrderStatus]int)
	for _, o := range f.orders {
		counts[o.Status]++
	}
	return counts, nil
}

func (f *fakeOrderRepo) Revenue(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, o := range f.orders {
		if o.PaymentStatus == models.PaymentPaid {
			total = total.Add(o.TotalPrice)
		}
	}
	return total, nil
}

type fakePaymentRepo struct {
	payments map[string]*models.PaymentTransaction // ключ: txnid
}

var _ storage.PaymentStorage = (*fakePaymentRepo)(nil)

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[string]*models.PaymentTransaction)}
}

func (f *fakePaymentRepo) CreatePayment(ctx context.Context, payment *models.PaymentTransaction) (int64, error) {
	payment.ID = int64(len(f.payments) + 1)
	f.payments[payment.TxnID] = payment
	return payment.ID, nil
}

func (f *fakePaymentRepo) LockByTxnIDTx(ctx context.Context, tx *sql.Tx, txnID string) (*models.PaymentTransaction, error) {
	p, ok := f.payments[txnID]
	if !ok {
		return nil, storage.ErrPaymentNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakePaymentRepo) UpdatePaymentTx(ctx context.Context, tx *sql.Tx, id int64, status models.TransactionStatus, gatewayPaymentID *string) error {
	for _, p := range f.payments {
		if p.ID == id {
			p.Status = status
			if gatewayPaymentID != nil {
				p.GatewayPaymentID = gatewayPaymentID
			}
			return nil
		}
	}
	return storage.ErrPaymentNotFound
}

func (f *fakePaymentRepo) ListByOrderID(ctx context.Context, orderID int64) ([]*models.PaymentTransaction, error) {
	var out []*models.PaymentTransaction
	for _, p := range f.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeCartRepo struct {
	artworks *fakeArtworkRepo
	items    map[int64][]*models.CartItem // ключ: userID
}

var _ storage.CartStorage = (*fakeCartRepo)(nil)

func newFakeCartRepo(artworks *fakeArtworkRepo) *fakeCartRepo {
	return &fakeCartRepo{artworks: artworks, items: make(map[int64][]*models.CartItem)}
}

func (f *fakeCartRepo) UpsertItem(ctx context.Context, userID, artworkID int64, quantity int) error {
	for _, item := range f.items[userID] {
		if item.ArtworkID == artworkID {
			item.Quantity = quantity
			return nil
		}
	}
	f.items[userID] = append(f.items[userID], &models.CartItem{UserID: userID, ArtworkID: artworkID, Quantity: quantity})
	return nil
}

func (f *fakeCartRepo) RemoveItem(ctx context.Context, userID, artworkID int64) error {
	items := f.items[userID][:0]
	for _, item := range f.items[userID] {
		if item.ArtworkID != artworkID {
			items = append(items, item)
		}
	}
	f.items[userID] = items
	return nil
}

func (f *fakeCartRepo) ListItems(ctx context.Context, userID int64) ([]*models.CartItem, error) {
	out := make([]*models.CartItem, 0, len(f.items[userID]))
	for _, item := range f.items[userID] {
		copied := *item
		if a, err := f.artworks.GetArtworkByID(ctx, item.ArtworkID); err == nil {
			copied.Artwork = a
		}
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeCartRepo) ListItemsTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartItem, error) {
	return f.ListItems(ctx, userID)
}

func (f *fakeCartRepo) ClearCartTx(ctx context.Context, tx *sql.Tx, userID int64) error {
	delete(f.items, userID)
	return nil
}

type fakeChatRepo struct {
	convs    map[int64]*models.ChatConversation
	messages []*models.ChatMessage
}

var _ storage.ChatStorage = (*fakeChatRepo)(nil)

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{convs: make(map[int64]*models.ChatConversation)}
}

func (f *fakeChatRepo) CreateConversationTx(ctx context.Context, tx *sql.Tx, conv *models.ChatConversation) (int64, error) {
	conv.ID = int64(len(f.convs) + 1)
	f.convs[conv.ID] = conv
	return conv.ID, nil
}

func (f *fakeChatRepo) AddMessageTx(ctx context.Context, tx *sql.Tx, msg *models.ChatMessage) (int64, error) {
	msg.ID = int64(len(f.messages) + 1)
	f.messages = append(f.messages, msg)
	return msg.ID, nil
}

func (f *fakeChatRepo) TouchConversationTx(ctx context.Context, tx *sql.Tx, id int64) error {
	if _, ok := f.convs[id]; !ok {
		return storage.ErrConversationNotFound
	}
	return nil
}

func (f *fakeChatRepo) GetConversation(ctx context.Context, id int64) (*models.ChatConversation, error) {
	c, ok := f.convs[id]
	if !ok {
		return nil, storage.ErrConversationNotFound
	}
	return c, nil
}

func (f *fakeChatRepo) ListConversations(ctx context.Context, filter storage.ConversationFilter, viewerID int64, page models.Page) ([]*models.ChatConversation, int, error) {
	var out []*models.ChatConversation
	for _, c := range f.convs {
		if filter.UserID != nil && c.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (f *fakeChatRepo) ListMessages(ctx context.Context, conversationID, afterID int64, limit int) ([]*models.ChatMessage, error) {
	var out []*models.ChatMessage
	for _, m := range f.messages {
		if m.ConversationID == conversationID && m.ID > afterID && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeChatRepo) MarkRead(ctx context.Context, conversationID, readerID int64) error {
	for _, m := range f.messages {
		if m.ConversationID == conversationID && m.SenderID != readerID {
			m.IsRead = true
		}
	}
	return nil
}

func (f *fakeChatRepo) SetStatus(ctx context.Context, id int64, status models.ConversationStatus) error {
	c, ok := f.convs[id]
	if !ok {
		return storage.ErrConversationNotFound
	}
	c.Status = status
	return nil
}

type fakeReviewRepo struct {
	reviews []*models.Review
}

var _ storage.ReviewStorage = (*fakeReviewRepo)(nil)

func (f *fakeReviewRepo) CreateReview(ctx context.Context, review *models.Review) (*models.Review, error) {
	for _, r := range f.reviews {
		if r.ArtworkID == review.ArtworkID && r.UserID == review.UserID {
			return nil, storage.ErrReviewExists
		}
	}
	review.ID = int64(len(f.reviews) + 1)
	f.reviews = append(f.reviews, review)
	return review, nil
}

func (f *fakeReviewRepo) ListByArtwork(ctx context.Context, artworkID int64, page models.Page) ([]*models.Review, int, error) {
	var out []*models.Review
	for _, r := range f.reviews {
		if r.ArtworkID == artworkID {
			out = append(out, r)
		}
	}
	return out, len(out), nil
}

type publishedEvent struct {
	key  string
	data any
}

// fakePublisher запоминает опубликованные события
type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

var _ events.Publisher = (*fakePublisher)(nil)

func (p *fakePublisher) Publish(ctx context.Context, key string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{key: key, data: data})
	return nil
}

func (p *fakePublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.events))
	for _, e := range p.events {
		keys = append(keys, e.key)
	}
	return keys
}
