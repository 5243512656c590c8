// Package departments is a small JSON API over the department store. It is
// the reference target for scenario tests and the server behind
// `resttest serve`.
//
// Routes:
//
//	GET    /api/departments/        list, ordered by repeated ?order_by=
//	POST   /api/departments/        create
//	GET    /api/departments/{id}    read
//	PUT    /api/departments/{id}    replace title
//	DELETE /api/departments/{id}    delete, 204 with an empty body
//
// Missing departments and malformed ids answer 404 {"error": "Object does
// not exist"}. Invalid input and duplicate titles answer 400 with the
// offending fields under "error".
package departments
