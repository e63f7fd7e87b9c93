// Package domain holds the shared types and capability interfaces of the
// console: queue and table models, the message stream contract, and the
// store interfaces implemented by the AWS SDK wrappers.
//
// Handlers and the broadcast pipeline depend only on these interfaces, so
// tests can inject fakes without touching LocalStack.
package domain
