// Package controller implements the reactive form-state engine: a single
// Controller owns the field map, runs synchronous and asynchronous
// validation, cascades disabled/visible state (including radio-group
// aggregation), and notifies subscribers.
//
// State transitions live on State (State.Apply returns a Delta describing what
// changed); the Controller applies events under its mutex and dispatches
// notifications from the resulting Delta with the mutex released, so listeners
// may call back into the Controller.
//
// Change broadcasts nest: a listener reacting to a change may mutate the form
// again. Reconciliation work queued during a broadcast (re-selecting a default
// radio option, restoring a value once a field is shown again, message
// visibility passes after a whole-form validation) runs once, when the
// outermost broadcast returns.
//
// Async validators return a Pending outcome whose Promise runs on its own
// goroutine. Each field carries an epoch counter; a resolution is committed
// only if no newer validation or value change has happened since it started.
//
// A Controller is replaced, never reset in place: ResetForm builds a successor
// from the same Factory and configuration and hands it to Config.SetController.
package controller
