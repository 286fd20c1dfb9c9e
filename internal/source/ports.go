package source

import (
	"context"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

// Ports for outbound adapters.
type (
	// BucketSource returns the monthly income and fixed-cost series. Amounts
	// are expressed at the given exchange rate.
	BucketSource interface {
		FetchIncome(ctx context.Context, rate decimal.Decimal) ([]core.Bucket, error)
		FetchFixedCosts(ctx context.Context, rate decimal.Decimal) ([]core.Bucket, error)
	}

	// BucketPatcher updates a recurring item. The item carries the new date_to.
	BucketPatcher interface {
		PatchIncome(ctx context.Context, item core.LineItem) error
		PatchFixedCost(ctx context.Context, item core.LineItem) error
	}

	SavingSource interface {
		FetchSavings(ctx context.Context) ([]core.SavingMonth, error)
	}

	SavingMutator interface {
		DeleteSaving(ctx context.Context, id int64) error
		PatchSaving(ctx context.Context, item core.SavingItem) error
	}

	// UserReader returns the profile of the token owner.
	UserReader interface {
		CurrentUser(ctx context.Context) (core.User, error)
	}

	// Source is everything a data backend provides.
	Source interface {
		BucketSource
		BucketPatcher
		SavingSource
		SavingMutator
		UserReader
	}
)
