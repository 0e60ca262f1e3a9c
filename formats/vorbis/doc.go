// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis files using github.com/jfreymuth/oggvorbis.
//
// Vorbis decodes to floating point; samples are scaled by 32768 and
// saturated to the int16 range so the source fits the 16-bit audio.Source
// contract.
package vorbis
