package password

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func testArgon2Config() Argon2Config {
	return Argon2Config{Memory: minMemoryKB, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}
}

func newTestHashers(t *testing.T) (*Bcrypt, *Argon2) {
	t.Helper()
	b, err := NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt() error: %v", err)
	}
	a, err := NewArgon2(testArgon2Config())
	if err != nil {
		t.Fatalf("NewArgon2() error: %v", err)
	}
	return b, a
}

func TestHashers_RoundTrip(t *testing.T) {
	b, a := newTestHashers(t)

	for name, h := range map[string]Hasher{"bcrypt": b, "argon2id": a} {
		t.Run(name, func(t *testing.T) {
			hash, err := h.Hash("password123")
			if err != nil {
				t.Fatalf("Hash() error: %v", err)
			}
			if strings.Contains(hash, "password123") {
				t.Fatal("hash must not contain the plaintext")
			}

			ok, err := h.Verify("password123", hash)
			if err != nil || !ok {
				t.Fatalf("Verify(correct) = %v, %v", ok, err)
			}
			ok, err = h.Verify("password124", hash)
			if err != nil || ok {
				t.Fatalf("Verify(wrong) = %v, %v", ok, err)
			}

			again, _ := h.Hash("password123")
			if again == hash {
				t.Error("hashes of the same password must be salted")
			}
		})
	}
}

func TestHashers_RejectShortPasswords(t *testing.T) {
	b, a := newTestHashers(t)
	for _, h := range []Hasher{b, a} {
		if _, err := h.Hash("short"); !errors.Is(err, ErrTooShort) {
			t.Errorf("%T.Hash(short) error = %v, want ErrTooShort", h, err)
		}
	}
}

func TestBcrypt_Config(t *testing.T) {
	if _, err := NewBcrypt(bcrypt.MaxCost + 1); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
	b, err := NewBcrypt(0)
	if err != nil || b.cost != bcrypt.DefaultCost {
		t.Errorf("NewBcrypt(0) = %+v, %v", b, err)
	}
}

func TestBcrypt_VerifyCorruptHash(t *testing.T) {
	b, _ := newTestHashers(t)
	if _, err := b.Verify("password123", "$2a$04$short"); !errors.Is(err, ErrInvalidHash) {
		t.Errorf("err = %v, want ErrInvalidHash", err)
	}
}

func TestBcrypt_VerifyOverlongPassword(t *testing.T) {
	b, _ := newTestHashers(t)
	hash, _ := b.Hash("password123")
	ok, err := b.Verify(strings.Repeat("x", 100), hash)
	if ok || err != nil {
		t.Errorf("Verify(overlong) = %v, %v; want false, nil", ok, err)
	}
}

func TestArgon2_Config(t *testing.T) {
	tests := []Argon2Config{
		{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16},
		{Memory: minMemoryKB, Time: 0, Parallelism: 1, SaltLength: 16, KeyLength: 16},
		{Memory: minMemoryKB, Time: 1, Parallelism: 0, SaltLength: 16, KeyLength: 16},
		{Memory: minMemoryKB, Time: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16},
		{Memory: minMemoryKB, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 8},
	}
	for _, cfg := range tests {
		if _, err := NewArgon2(cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("NewArgon2(%+v) error = %v, want ErrInvalidConfig", cfg, err)
		}
	}
	if _, err := NewArgon2(DefaultArgon2Config()); err != nil {
		t.Errorf("default config rejected: %v", err)
	}
}

func TestArgon2_VerifyMalformed(t *testing.T) {
	_, a := newTestHashers(t)
	good, _ := a.Hash("password123")
	parts := strings.Split(good, "$")

	tests := map[string]struct {
		hash string
		want error
	}{
		"not phc":       {hash: "plaintext", want: ErrInvalidHash},
		"other algo":    {hash: "$argon2i$v=19$m=8192,t=1,p=1$" + parts[4] + "$" + parts[5], want: ErrUnsupportedHash},
		"bad version":   {hash: "$argon2id$v=16$" + parts[3] + "$" + parts[4] + "$" + parts[5], want: ErrInvalidHash},
		"weak memory":   {hash: "$argon2id$v=19$m=64,t=1,p=1$" + parts[4] + "$" + parts[5], want: ErrInvalidHash},
		"missing param": {hash: "$argon2id$v=19$m=8192,t=1$" + parts[4] + "$" + parts[5], want: ErrInvalidHash},
		"short salt":    {hash: "$argon2id$v=19$" + parts[3] + "$c2FsdA$" + parts[5], want: ErrInvalidHash},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := a.Verify("password123", tt.hash); !errors.Is(err, tt.want) {
				t.Errorf("Verify() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestArgon2_NeedsUpgrade(t *testing.T) {
	_, weak := newTestHashers(t)
	hash, _ := weak.Hash("password123")

	strong, _ := NewArgon2(Argon2Config{Memory: 2 * minMemoryKB, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16})
	if up, err := strong.NeedsUpgrade(hash); err != nil || !up {
		t.Errorf("NeedsUpgrade() = %v, %v; want true", up, err)
	}
	if up, err := weak.NeedsUpgrade(hash); err != nil || up {
		t.Errorf("NeedsUpgrade() = %v, %v; want false", up, err)
	}
}

func TestVerifier_DispatchesOnFormat(t *testing.T) {
	b, a := newTestHashers(t)
	bh, _ := b.Hash("password123")
	ah, _ := a.Hash("password123")

	v := NewVerifier(a)
	for _, hash := range []string{bh, ah} {
		ok, err := v.Verify("password123", hash)
		if err != nil || !ok {
			t.Errorf("Verify(%.10s...) = %v, %v", hash, ok, err)
		}
	}

	if _, err := v.Verify("password123", "{noop}password123"); !errors.Is(err, ErrUnsupportedHash) {
		t.Errorf("err = %v, want ErrUnsupportedHash", err)
	}

	if up, _ := v.NeedsUpgrade(bh); !up {
		t.Error("bcrypt hash should need upgrade when argon2id is preferred")
	}
	if up, _ := v.NeedsUpgrade(ah); up {
		t.Error("preferred-format hash should not need upgrade")
	}

	fresh, err := v.Hash("password123")
	if err != nil || !strings.HasPrefix(fresh, "$argon2id$") {
		t.Errorf("Hash() = %q, %v", fresh, err)
	}
}

func TestDecoyHash(t *testing.T) {
	b, _ := newTestHashers(t)
	decoy, err := DecoyHash(b)
	if err != nil {
		t.Fatalf("DecoyHash() error: %v", err)
	}
	ok, err := NewVerifier(b).Verify("password123", decoy)
	if err != nil || ok {
		t.Errorf("Verify(decoy) = %v, %v; want false, nil", ok, err)
	}
}
