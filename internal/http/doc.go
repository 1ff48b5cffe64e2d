// Package http exposes the room booking API.
//
// The router exposes the following endpoints:
//   - GET /health: store reachability. Responds 200 {"status":"ok"} or 503.
//   - POST /rooms, GET /rooms: register and list rooms using the `roomDTO`
//     payload defined in room_handler.go.
//   - GET /rooms/{roomID}?date=YYYY-MM-DD: one room with its meeting index and
//     the cached availability for the day (today when omitted).
//   - GET /rooms/{roomID}/availability?date=YYYY-MM-DD and
//     GET /rooms/availability/{date}: occupancy and free slots for one room or
//     for every room.
//   - GET /meetings?room_id=&from=&to=, POST /meetings, GET /meetings/{meetingID},
//     PUT /meetings/{meetingID}, DELETE /meetings/{meetingID}: booking endpoints
//     exchanging the `meetingDTO` payload defined in meeting_handler.go. A rejected
//     booking answers 409 with the overlapping meetings.
//   - GET /ws?email=: websocket upgrade for reminder delivery.
//
// Instants are RFC 3339. Request/response DTOs live alongside their handlers.
package http
