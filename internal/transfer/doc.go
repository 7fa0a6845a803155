// Package transfer moves media files between the remote store and local
// disk. The rclone client shells out to rclone so any remote it can address
// works unchanged; the local client serves mounted paths and tests.
package transfer
