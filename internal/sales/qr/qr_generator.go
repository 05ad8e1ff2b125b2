package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// InvoiceCode is the payload printed on an invoice QR.
type InvoiceCode struct {
	SaleID      string          `json:"sale_id"`
	UserID      string          `json:"user_id"`
	ItemCount   int             `json:"item_count"`
	Total       decimal.Decimal `json:"total"`
	PurchasedAt time.Time       `json:"purchased_at"`
}

type QRGenerator struct {
	secret []byte
	size   int
}

func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &QRGenerator{secret: hashed[:], size: 256}
}

// Token encrypts code into the URL-safe string carried by the QR image.
func (q *QRGenerator) Token(code InvoiceCode) (string, error) {
	data, err := json.Marshal(code)
	if err != nil {
		return "", err
	}
	return encryptAES(data, q.secret)
}

// Encode renders code as an encrypted PNG QR.
func (q *QRGenerator) Encode(code InvoiceCode) ([]byte, error) {
	token, err := q.Token(code)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(token, qrcode.Medium, q.size)
}

// Decode reverses Token.
func (q *QRGenerator) Decode(token string) (InvoiceCode, error) {
	var code InvoiceCode
	data, err := decryptAES(token, q.secret)
	if err != nil {
		return code, err
	}
	err = json.Unmarshal(data, &code)
	return code, err
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)
	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

func decryptAES(token string, key []byte) ([]byte, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aes.BlockSize {
		return nil, errors.New("qr token too short")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	data := make([]byte, len(ciphertext)-aes.BlockSize)
	stream := cipher.NewCFBDecrypter(block, ciphertext[:aes.BlockSize])
	stream.XORKeyStream(data, ciphertext[aes.BlockSize:])
	return data, nil
}
