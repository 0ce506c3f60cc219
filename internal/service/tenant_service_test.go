package service

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func newTenantService() (*TenantService, *fakeStore) {
	store := newFakeStore()
	return NewTenantService(store.repositories(), zap.NewNop()), store
}

func TestCreateTenant(t *testing.T) {
	svc, _ := newTenantService()
	ctx := context.Background()

	tenant, err := svc.CreateTenant(ctx, TenantCreateInput{
		Name:    "Acme Corp",
		Slug:    "Acme-Corp",
		Domains: []string{"acme.test", "acme-mail.test"},
	})
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	if tenant.Slug != "acme-corp" {
		t.Errorf("Slug = %q, want lowercased", tenant.Slug)
	}
	if !tenant.IsActive {
		t.Error("new tenant inactive")
	}

	domains, err := svc.ListDomains(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("ListDomains: %v", err)
	}
	if len(domains) != 2 {
		t.Errorf("domains = %d, want 2", len(domains))
	}
}

func TestCreateTenantValidation(t *testing.T) {
	svc, _ := newTenantService()
	ctx := context.Background()

	_, err := svc.CreateTenant(ctx, TenantCreateInput{Name: "", Slug: "x"})
	assertStatus(t, err, 400)

	_, err = svc.CreateTenant(ctx, TenantCreateInput{Name: "X", Slug: "has spaces"})
	assertStatus(t, err, 400)

	if _, err := svc.CreateTenant(ctx, TenantCreateInput{Name: "First", Slug: "taken"}); err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	_, err = svc.CreateTenant(ctx, TenantCreateInput{Name: "Second", Slug: "taken"})
	assertStatus(t, err, 409)
}

func TestUpdateTenantPartial(t *testing.T) {
	svc, _ := newTenantService()
	ctx := context.Background()
	tenant, err := svc.CreateTenant(ctx, TenantCreateInput{Name: "Before", Slug: "before"})
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}

	updated, err := svc.UpdateTenant(ctx, tenant.ID, TenantCreateInput{Name: "After"})
	if err != nil {
		t.Fatalf("UpdateTenant: %v", err)
	}
	if updated.Name != "After" {
		t.Errorf("Name = %q", updated.Name)
	}
	if updated.Slug != "before" {
		t.Errorf("Slug = %q, empty input must leave it unchanged", updated.Slug)
	}

	_, err = svc.UpdateTenant(ctx, "missing", TenantCreateInput{Name: "X"})
	assertStatus(t, err, 404)
}

func TestClaimDomainConflicts(t *testing.T) {
	svc, _ := newTenantService()
	ctx := context.Background()
	first, _ := svc.CreateTenant(ctx, TenantCreateInput{Name: "First", Slug: "first"})
	second, _ := svc.CreateTenant(ctx, TenantCreateInput{Name: "Second", Slug: "second"})

	if err := svc.ClaimDomain(ctx, first.ID, "Shared.Test"); err != nil {
		t.Fatalf("ClaimDomain: %v", err)
	}

	// another tenant cannot take it, and re-claiming is also a conflict
	assertStatus(t, svc.ClaimDomain(ctx, second.ID, "shared.test"), 409)
	assertStatus(t, svc.ClaimDomain(ctx, first.ID, "shared.test"), 409)

	assertStatus(t, svc.ClaimDomain(ctx, first.ID, "not a domain"), 400)
	assertStatus(t, svc.ClaimDomain(ctx, "missing", "fine.test"), 404)
}

func TestReleaseDomain(t *testing.T) {
	svc, _ := newTenantService()
	ctx := context.Background()
	tenant, _ := svc.CreateTenant(ctx, TenantCreateInput{
		Name: "Acme", Slug: "acme", Domains: []string{"acme.test"},
	})

	if err := svc.ReleaseDomain(ctx, tenant.ID, "acme.test"); err != nil {
		t.Fatalf("ReleaseDomain: %v", err)
	}
	domains, _ := svc.ListDomains(ctx, tenant.ID)
	if len(domains) != 0 {
		t.Errorf("domains = %d, want 0", len(domains))
	}

	assertStatus(t, svc.ReleaseDomain(ctx, tenant.ID, "acme.test"), 404)
}

func TestSetTenantActive(t *testing.T) {
	svc, _ := newTenantService()
	ctx := context.Background()
	tenant, _ := svc.CreateTenant(ctx, TenantCreateInput{Name: "Acme", Slug: "acme"})

	updated, err := svc.SetTenantActive(ctx, tenant.ID, false)
	if err != nil {
		t.Fatalf("SetTenantActive: %v", err)
	}
	if updated.IsActive {
		t.Error("tenant still active")
	}

	_, err = svc.SetTenantActive(ctx, "missing", true)
	assertStatus(t, err, 404)
}
