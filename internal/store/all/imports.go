// Package all enables every built-in store backend.
package all

import (
	_ "github.com/JonMunkholm/importer/internal/store/mssql"
	_ "github.com/JonMunkholm/importer/internal/store/mysql"
	_ "github.com/JonMunkholm/importer/internal/store/postgres"
	_ "github.com/JonMunkholm/importer/internal/store/sqlite"
)
