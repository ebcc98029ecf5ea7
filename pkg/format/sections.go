package format

// Logical section names as stored in the section map.
const (
	SectionHeader         = "AcDb:Header"
	SectionClasses        = "AcDb:Classes"
	SectionHandles        = "AcDb:Handles"
	SectionObjects        = "AcDb:AcDbObjects"
	SectionObjFreeSpace   = "AcDb:ObjFreeSpace"
	SectionTemplate       = "AcDb:Template"
	SectionAuxHeader      = "AcDb:AuxHeader"
	SectionSummaryInfo    = "AcDb:SummaryInfo"
	SectionPreview        = "AcDb:Preview"
	SectionAppInfo        = "AcDb:AppInfo"
	SectionAppInfoHistory = "AcDb:AppInfoHistory"
	SectionFileDepList    = "AcDb:FileDepList"
	SectionRevHistory     = "AcDb:RevHistory"
	SectionSecurity       = "AcDb:Security"
	SectionVBAProject     = "AcDb:VBAProject"
	SectionSignature      = "AcDb:Signature"
)

// Section names used in diagnostics for structures that are not sections.
const (
	FileHeaderName    = "file header"
	PageMapName       = "page map"
	SectionMapName    = "section map"
	MetadataBlockName = "metadata block"
)

// OpaqueSections lists the sections preserved as raw bytes, in write order.
func OpaqueSections() []string {
	return []string{
		SectionSummaryInfo,
		SectionPreview,
		SectionVBAProject,
		SectionAppInfo,
		SectionAppInfoHistory,
		SectionFileDepList,
		SectionRevHistory,
		SectionSecurity,
		SectionObjFreeSpace,
		SectionTemplate,
		SectionAuxHeader,
		SectionSignature,
	}
}

// IsCompressedSection reports whether the paged layouts store name with LZ77
// compression. Small descriptive sections are stored as-is.
func IsCompressedSection(name string) bool {
	switch name {
	case SectionSummaryInfo, SectionPreview, SectionAppInfo, SectionAppInfoHistory,
		SectionFileDepList, SectionRevHistory, SectionSecurity, SectionSignature, SectionVBAProject:
		return false
	}
	return true
}

// MaxPageSize returns the decompressed page size used for name.
func MaxPageSize(name string) int {
	switch name {
	case SectionSummaryInfo, SectionAppInfo, SectionAppInfoHistory, SectionFileDepList,
		SectionRevHistory, SectionSecurity, SectionSignature:
		return 0x80
	case SectionPreview, SectionVBAProject:
		return 0x400
	}
	return 0x7400
}
