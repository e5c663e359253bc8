package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func stubFactory(name string) ProviderFactory {
	return func(map[string]any) (Provider, error) {
		return &stubProvider{name: name, values: map[string]string{"key": "from-" + name}}, nil
	}
}

func TestRegistry_RegisterAndCreate(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("stub", stubFactory("stub")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	p, err := reg.Create("stub", map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p == nil || p.Name() != "stub" {
		t.Fatalf("unexpected provider: %#v", p)
	}
}

func TestRegistry_RegisterErrors(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register("stub", stubFactory("stub"))

	tests := []struct {
		name    string
		factory ProviderFactory
		wantErr error
	}{
		{"stub", stubFactory("stub"), ErrDuplicateProvider},
		{" stub ", stubFactory("stub"), ErrDuplicateProvider},
		{"  ", stubFactory("x"), ErrInvalidProvider},
		{"nil", nil, ErrInvalidProvider},
	}
	for _, tt := range tests {
		if err := reg.Register(tt.name, tt.factory); !errors.Is(err, tt.wantErr) {
			t.Errorf("Register(%q) error = %v, want %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestRegistry_CreateErrors(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Create("missing", nil); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Create(missing) error = %v, want ErrUnknownProvider", err)
	}

	boom := errors.New("bad settings")
	_ = reg.Register("broken", func(map[string]any) (Provider, error) { return nil, boom })
	if _, err := reg.Create("broken", nil); !errors.Is(err, boom) {
		t.Errorf("Create(broken) error = %v, want factory error", err)
	}
	if _, err := reg.NewResolver(true, nil); !errors.Is(err, boom) {
		t.Errorf("NewResolver() error = %v, want factory error", err)
	}
}

func TestRegistry_NewResolver(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register("b", stubFactory("b"))
	_ = reg.Register("a", stubFactory("a"))

	if got := reg.List(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("List() = %v, want [a b]", got)
	}

	r, err := reg.NewResolver(true, nil)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	got, err := r.ResolveValue(context.Background(), "a=secretref:a:key b=secretref:b:key")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "a=from-a b=from-b" {
		t.Errorf("ResolveValue() = %q", got)
	}
}

func TestDefaultRegistry_FileDir(t *testing.T) {
	if got := DefaultRegistry.List(); !slices.Contains(got, "env") || !slices.Contains(got, "file") {
		t.Fatalf("DefaultRegistry.List() = %v, want env and file", got)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "jwt"), []byte("mounted\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	r, err := DefaultRegistry.NewResolver(true, map[string]map[string]any{"file": {"dir": dir}})
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	if got, err := r.ResolveValue(context.Background(), "secretref:file:jwt"); err != nil || got != "mounted" {
		t.Errorf("ResolveValue() = %q, %v; want mounted", got, err)
	}

	if _, err := DefaultRegistry.NewResolver(true, map[string]map[string]any{"file": {"dir": 42}}); err == nil {
		t.Error("expected error for a non-string dir")
	}
}
