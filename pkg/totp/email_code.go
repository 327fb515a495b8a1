package totp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const (
	emailCodeMin = 100000
	emailCodeMax = 999999
)

var emailCodeSpan = big.NewInt(emailCodeMax - emailCodeMin + 1)

// GenerateEmailCode returns a six digit numeric code uniform over
// [100000, 999999].
func GenerateEmailCode() (string, error) {
	n, err := rand.Int(rand.Reader, emailCodeSpan)
	if err != nil {
		return "", errors.Join(ErrFailedToGenerateEmailCode, err)
	}
	return fmt.Sprintf("%d", n.Int64()+emailCodeMin), nil
}
