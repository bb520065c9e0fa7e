// Package metrics defines all custom Prometheus metrics for the user
// management API. It is the single source of truth for metric names, labels,
// and help strings; registration happens through promauto at package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "users"

// UsersCreatedTotal counts successfully provisioned accounts.
// Label:
//   - role: the role assigned at creation ("ADMIN" or "USER")
var UsersCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "created_total",
		Help:      "Total number of user accounts successfully created.",
	},
	[]string{"role"},
)

// IdentityProviderErrorsTotal counts failed calls against the identity
// provider.
// Label:
//   - op: the remote operation ("create_user", "assign_role", "update_user",
//     "reset_password", "delete_user", "token")
var IdentityProviderErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "identity_provider_errors_total",
		Help:      "Total number of failed identity provider calls, by operation.",
	},
	[]string{"op"},
)

// CompensationsTotal counts compensating identity deletes issued after a
// local persistence failure during account creation.
var CompensationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "create_compensations_total",
		Help:      "Total number of compensating identity deletes after a failed local persist.",
	},
)

// OrphanedIdentitiesTotal counts remote identities left behind because a
// best-effort identity delete failed. This is the only operational signal for
// an otherwise swallowed failure path.
var OrphanedIdentitiesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orphaned_identities_total",
		Help:      "Total number of remote identities presumed orphaned after a failed delete.",
	},
)

// WelcomeEmailsTotal counts welcome email attempts.
// Label:
//   - result: "sent" or "error"
var WelcomeEmailsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "welcome_emails_total",
		Help:      "Total number of welcome email attempts, by result.",
	},
	[]string{"result"},
)

// RateLimitedTotal counts requests rejected by the Redis rate limiter.
var RateLimitedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by the rate limiter.",
	},
)
