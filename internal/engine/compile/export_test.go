package compile

// AddOverrides exposes addOverrides for testing.
var AddOverrides = addOverrides
