// SPDX-License-Identifier: EPL-2.0

package mp3_test

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"github.com/ik5/audvox/audio"
	"github.com/ik5/audvox/formats/mp3"
)

// ExampleDecoder_Decode shows how to decode an MP3 file.
func ExampleDecoder_Decode() {
	f, err := os.Open("input.mp3")
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	src, err := mp3.Decoder{}.Decode(f)
	if err != nil {
		log.Fatal(err)
	}

	// go-mp3 output is always stereo
	fmt.Printf("Decoded MP3: %d Hz, %d channels, %d frames\n",
		src.SampleRate(), src.Channels(), audio.Frames(src))
}

// ExampleDecoder_Decode_readAll decodes a whole file, the way a bank is
// filled.
func ExampleDecoder_Decode_readAll() {
	f, err := os.Open("input.mp3")
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	src, err := mp3.Decoder{}.Decode(f)
	if err != nil {
		log.Fatal(err)
	}
	defer src.Close()

	samples, err := audio.ReadAll(src)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%d of %d frames decoded\n", len(samples)/src.Channels(), audio.Frames(src))
}

// ExampleDecoder_Decode_errorHandling shows error handling for invalid MP3 data.
func ExampleDecoder_Decode_errorHandling() {
	_, err := mp3.Decoder{}.Decode(bytes.NewReader([]byte("not an mp3 file")))
	if err != nil {
		fmt.Println("invalid MP3 rejected")
		return
	}

	fmt.Println("MP3 decoded successfully")
	// Output: invalid MP3 rejected
}
