package policy

import (
	"slices"
	"time"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/manifest"
)

// PackagePlan holds the decisions of one package.
type PackagePlan struct {
	Decisions map[manifest.Channel]*Decision
	// FilterReason explains why a filtered package is not published.
	FilterReason   string
	Name           string
	Version        string
	Mode           Mode
	ReleaseChannel ReleaseChannel
	Changed        bool
	Filtered       bool
}

// ShouldPublish reports whether any channel must be published.
func (pkgPlan *PackagePlan) ShouldPublish() bool {
	for _, decision := range pkgPlan.Decisions {
		if decision.ShouldPublish {
			return true
		}
	}

	return false
}

// Decision returns the decision of a channel, or nil if the package does not declare it.
func (pkgPlan *PackagePlan) Decision(channel manifest.Channel) *Decision {
	return pkgPlan.Decisions[channel]
}

// Plan is the outcome of planning. Packages are in scan order; excluded packages are absent.
type Plan struct {
	byName      map[string]*PackagePlan
	GeneratedAt time.Time
	Epoch       time.Time
	Packages    []*PackagePlan
}

func newPlan(now, epoch time.Time) *Plan {
	return &Plan{
		byName:      make(map[string]*PackagePlan),
		GeneratedAt: now,
		Epoch:       epoch,
	}
}

func (plan *Plan) add(pkgPlan *PackagePlan) {
	plan.byName[pkgPlan.Name] = pkgPlan
	plan.Packages = append(plan.Packages, pkgPlan)
}

// Package returns the plan of the named package, or nil.
func (plan *Plan) Package(name string) *PackagePlan {
	if plan == nil {
		return nil
	}

	return plan.byName[name]
}

// Publishable returns the names of the packages with at least one channel to publish.
func (plan *Plan) Publishable() []string {
	var names []string

	for _, pkgPlan := range plan.Packages {
		if pkgPlan.ShouldPublish() {
			names = append(names, pkgPlan.Name)
		}
	}

	return names
}

// Errors returns the errors of every unknown decision, by package then channel.
func (plan *Plan) Errors() []error {
	var errs []error

	for _, pkgPlan := range plan.Packages {
		for _, channel := range manifest.AllChannels {
			if decision := pkgPlan.Decisions[channel]; decision != nil && decision.Err != nil {
				errs = append(errs, decision.Err)
			}
		}
	}

	return errs
}

// Unknown counts the decisions with StatusUnknown. With kinds, only decisions whose error has one of them count.
func (plan *Plan) Unknown(kinds ...errors.Kind) int {
	count := 0

	for _, pkgPlan := range plan.Packages {
		for _, decision := range pkgPlan.Decisions {
			if decision.Status != StatusUnknown {
				continue
			}

			if len(kinds) == 0 || slices.Contains(kinds, decision.ErrorKind()) {
				count++
			}
		}
	}

	return count
}

// Channels returns the channels of the package plan in canonical order.
func (pkgPlan *PackagePlan) Channels() []manifest.Channel {
	channels := make([]manifest.Channel, 0, len(pkgPlan.Decisions))

	for _, channel := range manifest.AllChannels {
		if _, ok := pkgPlan.Decisions[channel]; ok {
			channels = append(channels, channel)
		}
	}

	return slices.Clip(channels)
}
