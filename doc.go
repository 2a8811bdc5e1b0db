// Package drm provides a library to interact with DRM
// (Direct Rendering Manager) and KMS (Kernel Mode Setting) interfaces.
//
// The subpackages build the display side of a KMS driver on top of it:
// mode wraps the mode-object ioctls, fence tracks GPU work until the
// hardware retires it, property caches KMS property descriptors, plane
// splits hardware planes into primary and overlay planes, and output
// turns connectors into display-server outputs. kms binds them to an
// open card and xrandr publishes outputs on an X server.
package drm
