// Package confloader loads layered configuration for PlotVault.
//
// A Loader merges a YAML file, PLOTVAULT_* environment variables and
// explicit overrides into one koanf tree and unmarshals it into a
// tagged struct. Whatever the target struct already holds acts as the
// default layer: the file overrides it, the environment overrides the
// file.
//
// A Watcher delivers change notifications for registered files so
// hosts can reload without restarting. It watches directories rather
// than files, surviving the replace-by-rename dance editors do on
// save.
package confloader
