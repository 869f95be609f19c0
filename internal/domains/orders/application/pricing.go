package application

import (
	"fmt"

	"github.com/Apurer/photo-orders/internal/domains/orders/domain"
)

// PriceTable maps every paid tier to its gateway price reference. The table
// is validated exhaustively at construction so an unmapped tier fails the
// process at startup instead of producing an unpriced session.
type PriceTable map[domain.Package]string

// Validate checks that every paid tier carries a non-empty price reference.
func (t PriceTable) Validate() error {
	for _, pkg := range []domain.Package{domain.PackageBasic, domain.PackageAdvanced, domain.PackagePremium} {
		if t[pkg] == "" {
			return fmt.Errorf("price table is missing tier %q", pkg)
		}
	}
	return nil
}

// PriceRef resolves the gateway price reference for a paid tier.
func (t PriceTable) PriceRef(pkg domain.Package) string {
	return t[pkg]
}
