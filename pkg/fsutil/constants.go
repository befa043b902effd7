package fsutil

// File and directory permission constants.
const (
	FileModeDefault = 0o644 // -rw-r--r--: downloaded files
	FileModeSecure  = 0o640 // -rw-r-----: config file

	DirModeDefault = 0o755 // drwxr-xr-x
)

// AppName is used for per-user configuration paths.
const AppName = "bulkget"
