// Package profile persists per-device settings and sighting metadata
// in SQLite.
//
// Two concerns share the device_profiles table:
//
//   - Profiles: a saved prefix and rotation, applied automatically the
//     next time the device is plugged in. Rows only count as profiles
//     once explicitly saved (has_profile = 1).
//   - Sightings: an inventory of every device ever seen, with its type
//     string, geometry and first/last seen timestamps. Recorded on
//     every attach regardless of whether a profile exists.
//
// The Store implements monome.ProfileStore and is wired into the
// service at startup when the database is enabled.
package profile
