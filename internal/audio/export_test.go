package audio

// Export internal functions for testing.
// This file is only compiled during tests (suffix _test.go).

// CopyPackets exports copyPackets for testing.
var CopyPackets = copyPackets

// ChunkFileName exports chunkFileName for testing.
var ChunkFileName = chunkFileName

// ChunkCount exports chunkCount for testing.
var ChunkCount = chunkCount

// BestAudioStream exports bestAudioStream for testing.
var BestAudioStream = bestAudioStream

// SplitSamples exports splitSamples for testing.
var SplitSamples = splitSamples
