// Package seo holds the shared domain types for SEO metric aggregation,
// plus the retry and rate-limit plumbing both provider clients use.
package seo
