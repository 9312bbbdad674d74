package processor

import (
	"strconv"

	"mediaproc/internal/invocation"
)

// Command contracts. Codec and quality flags are fixed so artifacts stay
// compatible with ones produced earlier.
var (
	copyOriginal = invocation.Template{
		Name:     "copy",
		Tool:     "cp",
		Args:     []string{"{input}", "{stem}.{ext}"},
		Produces: []string{"{stem}.{ext}"},
	}

	videoThumbnail = invocation.Template{
		Name:     "thumbnail",
		Tool:     "ffmpeg",
		Args:     []string{"-y", "-i", "{input}", "-vframes", "1", "-map", "0:v:0", "{stem}.png"},
		Produces: []string{"{stem}.png"},
	}

	videoMP4 = invocation.Template{
		Name: "mp4",
		Tool: "ffmpeg",
		Args: []string{
			"-y", "-i", "{input}",
			"-vcodec", "libx264", "-movflags", "faststart", "-acodec", "libfdk_aac",
			"-pix_fmt", "yuv420p", "-profile:v", "baseline", "-preset", "slower", "-crf", "18",
			"-vf", "scale=trunc(in_w/2)*2:trunc(in_h/2)*2",
		},
		Tail:     []string{"{stem}.mp4"},
		Produces: []string{"{stem}.mp4"},
	}

	videoWebM = invocation.Template{
		Name: "webm",
		Tool: "ffmpeg",
		Args: []string{
			"-y", "-i", "{input}",
			"-c:v", "libvpx", "-c:a", "libvorbis", "-pix_fmt", "yuv420p",
			"-quality", "good", "-b:v", "2M", "-crf", "5",
		},
		Tail:     []string{"{stem}.webm"},
		Produces: []string{"{stem}.webm"},
	}

	videoOGV = invocation.Template{
		Name: "ogv",
		Tool: "ffmpeg",
		Args: []string{
			"-y", "-i", "{input}",
			"-q:v", "5", "-pix_fmt", "yuv420p", "-acodec", "libvorbis", "-vcodec", "libtheora",
		},
		Tail:     []string{"{stem}.ogv"},
		Produces: []string{"{stem}.ogv"},
	}

	audioMP3 = invocation.Template{
		Name:     "mp3",
		Tool:     "ffmpeg",
		Args:     []string{"-y", "-i", "{input}", "-acodec", "libmp3lame", "-q:a", "0", "-map", "0:a:0", "{stem}.mp3"},
		Produces: []string{"{stem}.mp3"},
	}

	audioOGG = invocation.Template{
		Name:     "ogg",
		Tool:     "ffmpeg",
		Args:     []string{"-y", "-i", "{input}", "-acodec", "libvorbis", "-q:a", "10", "-map", "0:a:0", "{stem}.ogg"},
		Produces: []string{"{stem}.ogg"},
	}

	imageConvert = invocation.Template{
		Name:     "png",
		Tool:     "convert",
		Args:     []string{"{input}", "{stem}.png"},
		Produces: []string{"{stem}.png"},
	}

	optimizePNG = invocation.Template{
		Name:     "optipng",
		Tool:     "optipng",
		Args:     []string{"-o5", "{stem}.png"},
		Produces: []string{"{stem}.png"},
	}

	optimizeJPEG = invocation.Template{
		Name:     "jpegtran",
		Tool:     "jpegtran",
		Args:     []string{"-optimize", "-perfect", "-copy", "none", "-outfile", "{stem}.{ext}", "{input}"},
		Produces: []string{"{stem}.{ext}"},
	}

	// tidySVG rewrites the input in place.
	tidySVG = invocation.Template{
		Name: "tidy",
		Tool: "tidy",
		Args: []string{"-asxml", "-xml", "--hide-comments", "1", "--wrap", "0", "--quiet", "--write-back", "1", "{input}"},
	}

	flattenXCF = invocation.Template{
		Name:     "png",
		Tool:     "xcf2png",
		Args:     []string{"{input}", "-o", "{stem}.png"},
		Produces: []string{"{stem}.png"},
	}

	fontDump = invocation.Template{
		Name:          "font-dump",
		Tool:          "ffmpeg",
		Args:          []string{"-y"},
		Tail:          []string{"-i", "{input}"},
		IgnoreNonZero: true,
	}
)

// attachmentDump renders -dump_attachment:<index> <target>.
type attachmentDump struct {
	index  int
	target string
}

func (a attachmentDump) Args() []string {
	return []string{"-dump_attachment:" + strconv.Itoa(a.index), a.target}
}

// subtitleDump extracts the first subtitle track to <stem><extension>.
func subtitleDump(extension string) invocation.Template {
	return invocation.Template{
		Name:     "subtitle",
		Tool:     "ffmpeg",
		Args:     []string{"-y", "-i", "{input}", "-map", "0:s:0", "{stem}" + extension},
		Produces: []string{"{stem}" + extension},
	}
}

func fontInfo(tools invocation.Tools, path string) invocation.Command {
	return invocation.Command{
		Name: "font-info",
		Tool: tools.Resolve("otfinfo"),
		Args: []string{"--info", path},
	}
}
