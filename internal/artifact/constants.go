package artifact

// File and directory name constants used throughout ctxkit.
// Centralizing these prevents typos and makes refactoring easier.
const (
	// ConfigFilename is the project-level configuration file
	ConfigFilename = ".ctxkit.yaml"

	// RegistryFilename is the default name of the artifact registry
	RegistryFilename = "registry.json"

	// SkillFilename is the standard filename for skill definitions
	SkillFilename = "SKILL.md"

	// PackStateFilename holds the skill pack selection state
	PackStateFilename = "state.json"

	// SyncManifestFilename is the manifest derived from the pack selection
	SyncManifestFilename = "sync-manifest.json"

	// APIIndexSchema identifies the api-index.json format
	APIIndexSchema = "api-index-v1"
)
