package constant

// VersionTemplate renders the output of the version command.
const VersionTemplate = `{{ magenta "▇▇▇" }} {{ magenta .App }}

  {{ faint "Version" }}         {{ bold .Version }}
  {{ faint "Git Commit" }}      {{ bold .Revision }}
  {{ faint "Build Date" }}      {{ bold .BuiltAt }}
  {{ faint "Built By" }}        {{ bold .BuiltBy }}
  {{ faint "Platform" }}        {{ bold .OS }}/{{ bold .Arch }}
`

// MergeManifestPrefix names the transient concat list written next to the merged output.
const MergeManifestPrefix = ".seriesdl-concat-"

// PartSuffix is appended to files that are still being downloaded.
const PartSuffix = ".part"
