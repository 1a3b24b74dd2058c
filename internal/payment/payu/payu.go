// Package payu реализует хеш-протокол платёжного шлюза PayU:
// подпись формы перед редиректом покупателя и проверку обратного хеша в callback-е.
package payu

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	ErrMissingHash  = errors.New("payu: response hash is missing")
	ErrHashMismatch = errors.New("payu: response hash mismatch")
)

// Credentials ключ мерчанта и соль, общие с шлюзом
type Credentials struct {
	Key  string
	Salt string
}

// Request поля формы, отправляемой покупателем на шлюз
type Request struct {
	TxnID       string
	Amount      decimal.Decimal
	ProductInfo string
	FirstName   string
	Email       string
	Phone       string
	UDF         [5]string
	SuccessURL  string
	FailureURL  string
	CancelURL   string
}

// Response поля, которые шлюз присылает POST-ом на surl/furl/curl
type Response struct {
	Status            string
	TxnID             string
	Amount            string
	ProductInfo       string
	FirstName         string
	Email             string
	UDF               [5]string
	MihPayID          string
	Hash              string
	AdditionalCharges string
	ErrorMessage      string
}

// FormatAmount сумма в том виде, в котором она участвует в хеше
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// RequestHash sha512(key|txnid|amount|productinfo|firstname|email|udf1..udf5||||||salt)
func (c Credentials) RequestHash(r Request) string {
	parts := []string{c.Key, r.TxnID, FormatAmount(r.Amount), r.ProductInfo, r.FirstName, r.Email}
	parts = append(parts, r.UDF[:]...)
	parts = append(parts, "", "", "", "", "", c.Salt)
	return digest(parts)
}

// Fields готовая форма для шлюза, включая hash
func (c Credentials) Fields(r Request) map[string]string {
	fields := map[string]string{
		"key":         c.Key,
		"txnid":       r.TxnID,
		"amount":      FormatAmount(r.Amount),
		"productinfo": r.ProductInfo,
		"firstname":   r.FirstName,
		"email":       r.Email,
		"phone":       r.Phone,
		"surl":        r.SuccessURL,
		"furl":        r.FailureURL,
		"curl":        r.CancelURL,
		"hash":        c.RequestHash(r),
	}
	for i, v := range r.UDF {
		if v != "" {
			fields["udf"+string(rune('1'+i))] = v
		}
	}
	return fields
}

// ResponseHash [additionalCharges|]salt|status||||||udf5|udf4|udf3|udf2|udf1|email|firstname|productinfo|amount|txnid|key
func (c Credentials) ResponseHash(r Response) string {
	parts := make([]string, 0, 18)
	if r.AdditionalCharges != "" {
		parts = append(parts, r.AdditionalCharges)
	}
	parts = append(parts, c.Salt, r.Status, "", "", "", "", "")
	for i := len(r.UDF) - 1; i >= 0; i-- {
		parts = append(parts, r.UDF[i])
	}
	parts = append(parts, r.Email, r.FirstName, r.ProductInfo, r.Amount, r.TxnID, c.Key)
	return digest(parts)
}

// Verify сравнивает присланный хеш с пересчитанным за постоянное время
func (c Credentials) Verify(r Response) error {
	if r.Hash == "" {
		return ErrMissingHash
	}
	expected := c.ResponseHash(r)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(r.Hash))) != 1 {
		return ErrHashMismatch
	}
	return nil
}

// ParseResponse читает поля callback-а из формы
func ParseResponse(form url.Values) Response {
	r := Response{
		Status:            form.Get("status"),
		TxnID:             form.Get("txnid"),
		Amount:            form.Get("amount"),
		ProductInfo:       form.Get("productinfo"),
		FirstName:         form.Get("firstname"),
		Email:             form.Get("email"),
		MihPayID:          form.Get("mihpayid"),
		Hash:              form.Get("hash"),
		AdditionalCharges: form.Get("additionalCharges"),
		ErrorMessage:      form.Get("error_Message"),
	}
	for i := range r.UDF {
		r.UDF[i] = form.Get("udf" + string(rune('1'+i)))
	}
	return r
}

// ParsedAmount сумма из ответа шлюза
func (r Response) ParsedAmount() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "payu: invalid amount %q", r.Amount)
	}
	return d, nil
}

func digest(parts []string) string {
	sum := sha512.Sum512([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
