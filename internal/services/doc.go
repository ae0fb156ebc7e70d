// Package services defines the error taxonomy and context carriers shared by
// every pipeline component. All failures constructed anywhere in the system
// map into one of the closed categories declared here.
package services
