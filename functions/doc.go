// Package functions contains the backend functions of the application.
// Every function registers itself in the dispatch registry at init time
// under the name the web client calls it by.
package functions
