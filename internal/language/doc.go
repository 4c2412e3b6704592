// Package language normalizes language hints for the recognizer.
//
// Configuration may spell a language as a word ("german"), an ISO 639-2 code
// ("deu"/"ger"), or the ISO 639-1 code the transcription endpoint expects;
// this package maps all of them to 639-1 plus a display name for summaries.
package language
