package cli

// Export internal functions for testing.

// RunSplit exports runSplit for testing.
var RunSplit = runSplit

// SplitOptions exports splitOptions for testing.
type SplitOptions = splitOptions

// RunProbe exports runProbe for testing.
var RunProbe = runProbe

// RunConfigSet exports runConfigSet for testing.
var RunConfigSet = runConfigSet

// RunConfigGet exports runConfigGet for testing.
var RunConfigGet = runConfigGet

// RunConfigList exports runConfigList for testing.
var RunConfigList = runConfigList

// IsValidConfigKey exports isValidConfigKey for testing.
var IsValidConfigKey = isValidConfigKey

// ValidConfigKeys exports validConfigKeys for testing.
var ValidConfigKeys = validConfigKeys

// ParseDuration exports parseDuration for testing.
var ParseDuration = parseDuration

// ChunkDirName exports chunkDirName for testing.
var ChunkDirName = chunkDirName

// OutputDirs exports outputDirs for testing.
var OutputDirs = outputDirs

// SupportedFormatsList exports supportedFormatsList for testing.
var SupportedFormatsList = supportedFormatsList

// ValidateInput exports validateInput for testing.
var ValidateInput = validateInput

// RenderTable exports renderTable for testing.
var RenderTable = renderTable
