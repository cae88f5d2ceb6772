// Package navigation routes actions to transient child features:
// optional destinations (alerts, sheets, edit forms) and a stack of
// pushed screens.
//
// Destination state lives in the parent as *Destination[C, S]; nil means
// nothing is presented. Actions reach a destination wrapped in a
// PresentationAction, whose Dismissed variant clears the slot without
// running the child reducer.
//
// Stack state is a plain slice of screen states, driven by StackAction.
//
// ScopeToElement and ScopeToDestination build facades over a parent store
// that read the child state on every access and wrap dispatched child
// actions in the right envelope. NewDismiss gives a child reducer a way to
// remove itself without knowing the parent's shape.
//
// Routing drops (absent destination, unknown case, bad stack index) are
// logged through compose.LogDropped and leave state unchanged.
package navigation
