// Package secret resolves secret references in configuration values.
//
// A value of the form "secretref:<provider>:<ref>" is replaced by what the
// named Provider returns for ref. Two providers are built in:
//
//   - env:  secretref:env:POSTBOARD_JWT_SECRET reads an environment variable
//   - file: secretref:file:jwt_secret reads a file under a base directory,
//     typically /run/secrets
//
// References may also appear inline ("Bearer secretref:env:TOKEN"). Every
// value is passed through ExpandEnv first, so ${VAR} works anywhere.
package secret
