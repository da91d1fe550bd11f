// Command attend runs the face-verified attendance kiosk and its helper
// commands.
package main
