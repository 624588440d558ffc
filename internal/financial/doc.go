// Package financial holds the pure calculators behind the funnels: the
// marketing ROI projection (plain and cold-traffic "realistic" modes) and
// the recoverable-amount estimators for revolving credit claims.
//
// Every quotient with a zero or negative denominator yields 0. Results are
// never NaN or infinite.
package financial
