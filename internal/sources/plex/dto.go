package plex

type apiResponse struct {
	MediaContainer mediaContainer `json:"MediaContainer"`
}

type mediaContainer struct {
	Size      int         `json:"size"`
	TotalSize int         `json:"totalSize,omitempty"`
	Offset    int         `json:"offset,omitempty"`
	Directory []directory `json:"Directory,omitempty"`
	Metadata  []metadata  `json:"Metadata,omitempty"`
}

type directory struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

type metadata struct {
	RatingKey       string  `json:"ratingKey"`
	ParentRatingKey string  `json:"parentRatingKey,omitempty"`
	GUID            string  `json:"guid,omitempty"`
	Guids           []guid  `json:"Guid,omitempty"`
	Type            string  `json:"type"`
	Title           string  `json:"title"`
	Index           int     `json:"index,omitempty"`
	Year            int     `json:"year,omitempty"`
	ChildCount      int     `json:"childCount,omitempty"`
	LeafCount       int     `json:"leafCount,omitempty"`
	Media           []media `json:"Media,omitempty"`
}

type guid struct {
	ID string `json:"id"`
}

type media struct {
	Part []part `json:"Part,omitempty"`
}

type part struct {
	Size int64 `json:"size,omitempty"`
}
