// Package tasksync keeps an in-memory, newest-first list of the signed-in
// user's tasks in step with the task service.
//
// The list is loaded once when a session starts and from then on changes
// only through the service's change feed. Create, Update, ToggleStatus and
// Delete report the outcome of the remote call and never touch the list
// themselves; their effect becomes visible when the matching change event
// arrives.
package tasksync
