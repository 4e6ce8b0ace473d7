package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a bcrypt hash for storage in users.password_hash.
// The cost comes from configuration (BCRYPT_COST) so environments can
// trade hashing time against hardware.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored hash. The
// comparison is constant-time inside bcrypt; callers treat a false
// result the same as an unknown email to keep login errors uniform.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
