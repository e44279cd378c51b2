// Package readiness observes which non-host participants are active and
// whether each has signalled readiness for the sleep checkpoint.
//
// Observation is read-only and idempotent: two snapshots of an unchanged
// session are equal.
package readiness
