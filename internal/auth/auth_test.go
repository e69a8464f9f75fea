package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestService_GenerateAndValidate(t *testing.T) {
	svc := NewService(Config{Secret: "test-secret", TokenDuration: time.Hour})

	token, err := svc.GenerateToken("user-1", "read", "write")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Subject != "user-1" || len(claims.Scope) != 2 {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Issuer != "lambda-http" {
		t.Errorf("Issuer = %q, want default issuer", claims.Issuer)
	}
}

func TestService_ValidateToken_Rejects(t *testing.T) {
	svc := NewService(Config{Secret: "test-secret"})
	other := NewService(Config{Secret: "other-secret"})
	expired := NewService(Config{Secret: "test-secret", TokenDuration: -time.Minute})

	foreign, _ := other.GenerateToken("user-1")
	stale, _ := expired.GenerateToken("user-1")

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "wrong secret", token: foreign},
		{name: "expired", token: stale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.ValidateToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestService_GenerateOriginToken(t *testing.T) {
	svc := NewService(Config{Secret: "test-secret"})

	if _, err := svc.GenerateOriginToken("null"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("GenerateOriginToken(null) error = %v", err)
	}

	token, err := svc.GenerateOriginToken("http://localhost:8888")
	if err != nil {
		t.Fatalf("GenerateOriginToken() error = %v", err)
	}
	refreshed, err := svc.RefreshToken(token)
	if err != nil {
		t.Fatalf("RefreshToken() error = %v", err)
	}
	claims, err := svc.ValidateToken(refreshed)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Origin != "http://localhost:8888" || len(claims.Audience) != 1 {
		t.Errorf("claims = %+v", claims)
	}
}

func TestDecoder(t *testing.T) {
	svc := NewService(Config{Secret: "test-secret"})
	token, _ := svc.GenerateToken("user-1")
	foreign, _ := NewService(Config{Secret: "other"}).GenerateToken("user-2")

	tests := []struct {
		name         string
		decoder      *Decoder
		token        string
		wantErr      bool
		wantVerified bool
	}{
		{name: "structural decode", decoder: NewDecoder(nil), token: foreign},
		{name: "verified decode", decoder: NewDecoder(svc), token: token, wantVerified: true},
		{name: "verification failure", decoder: NewDecoder(svc), token: foreign, wantErr: true},
		{name: "malformed", decoder: NewDecoder(nil), token: "a.b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.decoder.Decode(tt.token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			decoded := got.(*Token)
			if decoded.Header["alg"] != "HS256" || decoded.Signature == "" || decoded.Claims["sub"] == nil {
				t.Errorf("decoded = %+v", decoded)
			}
			if decoded.Verified != tt.wantVerified {
				t.Errorf("Verified = %v, want %v", decoded.Verified, tt.wantVerified)
			}
		})
	}
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		header string
		want   string
		wantOK bool
	}{
		{header: "Bearer abc.def.ghi", want: "abc.def.ghi", wantOK: true},
		{header: "bearer abc", want: "abc", wantOK: true},
		{header: "Basic dXNlcjpwYXNz"},
		{header: "Bearer "},
		{header: ""},
	}

	for _, tt := range tests {
		got, ok := ExtractBearer(tt.header)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ExtractBearer(%q) = %q, %v", tt.header, got, ok)
		}
	}
}

func TestTokenContext(t *testing.T) {
	if _, ok := TokenFromContext(context.Background()); ok {
		t.Error("empty context should carry no token")
	}
	ctx := WithToken(context.Background(), &Token{Raw: "x"})
	if tok, ok := TokenFromContext(ctx); !ok || tok.(*Token).Raw != "x" {
		t.Errorf("TokenFromContext() = %v, %v", tok, ok)
	}
}
