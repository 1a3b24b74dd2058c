package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrArtistNotFound       = errors.New("artist not found")
	ErrArtistExists         = errors.New("artist profile already exists")
	ErrArtworkNotFound      = errors.New("artwork not found")
	ErrArtworkHasOrders     = errors.New("artwork has orders")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrOrderNotFound        = errors.New("order not found")
	ErrPaymentNotFound      = errors.New("payment transaction not found")
	ErrReviewExists         = errors.New("review already exists")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrResourceLocked       = errors.New("resource is locked, please try again")
)

// коды ошибок postgres
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeLockNotAvailable    = "55P03"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// lockErr превращает срабатывание lock_timeout в ErrResourceLocked
func lockErr(err error) error {
	if pqCode(err) == codeLockNotAvailable {
		return fmt.Errorf("%w: %v", ErrResourceLocked, err)
	}
	return err
}

// rowScanner общий интерфейс *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// whereBuilder собирает условия с позиционными параметрами $1, $2, ...
type whereBuilder struct {
	conds []string
	args  []any
}

// add принимает условие с одним %d (или %[1]d), которое заменяется номером параметра
func (b *whereBuilder) add(cond string, arg any) {
	b.args = append(b.args, arg)
	b.conds = append(b.conds, fmt.Sprintf(cond, len(b.args)))
}

func (b *whereBuilder) addRaw(cond string) {
	b.conds = append(b.conds, cond)
}

func (b *whereBuilder) sql() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

// limitOffset добавляет LIMIT/OFFSET к уже собранным аргументам
func (b *whereBuilder) limitOffset(limit, offset int) (string, []any) {
	args := append(append([]any{}, b.args...), limit, offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}
