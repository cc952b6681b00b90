// Package http exposes the scheduler over a JSON API.
//
// Routes (all under /api unless noted, JSON bodies use camelCase):
//   - POST /auth/register, POST /auth/login: public, rate limited per client IP.
//     Login returns {"token","expiresAt","user"}; pass the token as
//     "Authorization: Bearer <token>" on every other route.
//   - GET|PUT /auth/profile: the caller's account.
//   - /appointments: list, create, conflicts, date-range filter, status filter,
//     an iCalendar feed (calendar.ics) and per-id get/update/delete.
//   - /tasks: list, create, overdue, status and priority filters, per-id
//     get/update/delete and PATCH /tasks/{id}/complete.
//   - /notifications/preferences (GET|PUT) and /notifications/subscribe (POST).
//   - /admin/...: cross-user listings and status overrides, Admin role only.
//   - GET /healthz (no prefix): liveness probe.
//
// Service errors map to status codes in responder.go: validation 422,
// malformed input 400, not found 404, forbidden 403, unauthenticated 401,
// conflicts and duplicates 409 (appointment conflicts carry the overlapping
// appointments), anything else 500.
package http
